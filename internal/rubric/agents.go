package rubric

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAgent indicates an agent id with no interview type mapping.
var ErrUnknownAgent = errors.New("unknown agent")

// DefaultAgents maps the stock voice agents to their interview types.
func DefaultAgents() map[string]string {
	return map[string]string{
		"Ykg1OlN7H58nquphXgmt": TypeProductSense,
		"0vdorfV4DR2C8SZXJsLQ": TypeCriticalAnalytical,
	}
}

// ResolveAgent returns the interview type for agentID from agents.
func ResolveAgent(agents map[string]string, agentID string) (string, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return "", fmt.Errorf("%w: agent id is empty", ErrUnknownAgent)
	}
	interviewType, ok := agents[agentID]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownAgent, agentID)
	}
	return interviewType, nil
}
