package graph

import (
	"context"
	"time"
)

// getNodeTimeout determines the timeout duration for a node based on
// precedence: NodePolicy.Timeout, then the executor's DefaultNodeTimeout,
// then unlimited (0).
func getNodeTimeout(policy *NodePolicy, defaultTimeout time.Duration) time.Duration {
	if policy != nil && policy.Timeout > 0 {
		return policy.Timeout
	}
	if defaultTimeout > 0 {
		return defaultTimeout
	}
	return 0
}

// executeNodeWithTimeout wraps one node invocation with timeout enforcement.
// Spec §4.4 treats timeouts as a caller-side wrapper around invoke; this
// repo keeps that wrapper at the executor level rather than pushing it onto
// every call site, matching the teacher's existing per-node timeout idiom.
func executeNodeWithTimeout(
	ctx context.Context,
	node Node,
	nodeID string,
	state State,
	policy *NodePolicy,
	defaultTimeout time.Duration,
	config *RunnableConfig,
) (State, error) {
	timeout := getNodeTimeout(policy, defaultTimeout)
	if timeout == 0 {
		return node(ctx, state, config)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := node(timeoutCtx, state, config)
	if err == nil && timeoutCtx.Err() == context.DeadlineExceeded {
		return out, newNodeExecutionError(nodeID, context.DeadlineExceeded)
	}
	return out, err
}
