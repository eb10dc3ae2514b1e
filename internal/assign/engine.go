// ABOUTME: Agent assignment engine balancing clients across the least-busy agents
// ABOUTME: Handles client intake, agent removal with reassignment, and counter reconciliation

package assign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/glotdesk/glotdesk/internal/store"
)

// Assignment errors
var (
	// ErrNoAvailableAgent means the owner has no agents at all. The client
	// stays unassigned and can be picked up later via Assign.
	ErrNoAvailableAgent = errors.New("no available agent")

	// ErrCannotReassign means an agent still has clients but no other agent
	// exists to take them. The deletion is refused and the agent preserved.
	ErrCannotReassign = errors.New("cannot reassign clients: no replacement agent")
)

// Engine selects agents for incoming clients and keeps the pool balanced
// when agents are removed. Selection looks at the two least-busy agents and
// breaks exact ties uniformly at random, so equally-loaded agents receive
// work at the same rate.
type Engine struct {
	store  store.Store
	logger *slog.Logger

	// intn is rand.IntN, replaceable in tests for deterministic tie-breaks.
	intn func(n int) int
}

// New creates an assignment engine backed by the given store.
func New(s store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  s,
		logger: logger,
		intn:   rand.IntN,
	}
}

// pick chooses among the least-busy candidates. Candidates arrive sorted by
// ascending client count; when the top two are exactly tied, one is chosen
// uniformly at random. An uneven pair always goes to the less busy agent.
func (e *Engine) pick(candidates []*store.User) *store.User {
	if len(candidates) == 1 {
		return candidates[0]
	}
	if candidates[0].ClientsHandled == candidates[1].ClientsHandled {
		return candidates[e.intn(2)]
	}
	return candidates[0]
}

// Assign attaches the client to the least-busy agent owned by ownerID and
// increments that agent's running client count. Returns the chosen agent.
//
// If the owner has no agents, ErrNoAvailableAgent is returned and the
// client is left untouched (still unassigned).
func (e *Engine) Assign(ctx context.Context, client *store.Client, ownerID string) (*store.User, error) {
	candidates, err := e.store.ListAgentsByOwner(ctx, ownerID, 2)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoAvailableAgent
	}

	chosen := e.pick(candidates)

	client.AssignedAgent = chosen.ID
	if err := e.store.UpdateClient(ctx, client); err != nil {
		return nil, fmt.Errorf("assigning client: %w", err)
	}

	chosen.ClientsHandled++
	if err := e.store.UpdateUser(ctx, chosen); err != nil {
		return nil, fmt.Errorf("updating agent count: %w", err)
	}

	e.logger.Info("client assigned",
		"client_id", client.ID,
		"agent_id", chosen.ID,
		"clients_handled", chosen.ClientsHandled)

	return chosen, nil
}

// RemoveAgent deletes an agent, first moving its clients and chat sessions
// to a replacement chosen by the same least-busy rule. The replacement's
// client count grows by the number of clients it absorbed.
//
// If the agent still has clients and no other agent exists in the owner's
// pool, ErrCannotReassign is returned and nothing changes.
func (e *Engine) RemoveAgent(ctx context.Context, agentID string) error {
	agent, err := e.store.GetUser(ctx, agentID)
	if err != nil {
		return fmt.Errorf("loading agent: %w", err)
	}
	if agent.Role != store.RoleAgent {
		return fmt.Errorf("user %s is not an agent", agentID)
	}

	clientCount, err := e.store.CountClientsByAgent(ctx, agentID)
	if err != nil {
		return fmt.Errorf("counting clients: %w", err)
	}

	if clientCount > 0 {
		replacement, err := e.replacementFor(ctx, agent)
		if err != nil {
			return err
		}

		moved, err := e.store.BulkReassignClients(ctx, agentID, replacement.ID)
		if err != nil {
			return fmt.Errorf("reassigning clients: %w", err)
		}

		repointed, err := e.store.BulkRepointSessions(ctx, agentID, replacement.ID)
		if err != nil {
			return fmt.Errorf("repointing sessions: %w", err)
		}

		replacement.ClientsHandled += moved
		if err := e.store.UpdateUser(ctx, replacement); err != nil {
			return fmt.Errorf("updating replacement count: %w", err)
		}

		e.logger.Info("clients reassigned",
			"from_agent", agentID,
			"to_agent", replacement.ID,
			"clients_moved", moved,
			"sessions_moved", repointed)
	}

	if err := e.store.DeleteUser(ctx, agentID); err != nil {
		return fmt.Errorf("deleting agent: %w", err)
	}

	e.logger.Info("agent removed", "agent_id", agentID, "clients_moved", clientCount)
	return nil
}

// replacementFor picks the least-busy agent in the same owner's pool,
// excluding the agent being removed.
func (e *Engine) replacementFor(ctx context.Context, agent *store.User) (*store.User, error) {
	// Fetch three so that after excluding the departing agent the top two
	// of the remainder are still available for the tie-break.
	pool, err := e.store.ListAgentsByOwner(ctx, agent.CreatedBy, 3)
	if err != nil {
		return nil, fmt.Errorf("listing agents: %w", err)
	}

	candidates := make([]*store.User, 0, 2)
	for _, a := range pool {
		if a.ID == agent.ID {
			continue
		}
		candidates = append(candidates, a)
		if len(candidates) == 2 {
			break
		}
	}

	if len(candidates) == 0 {
		return nil, ErrCannotReassign
	}
	return e.pick(candidates), nil
}

// Reconcile recomputes each agent's clients_handled from the actual number
// of clients currently assigned to it, returning how many agents were
// corrected. Counters can drift because assignment reads and increments
// without a transaction; this puts them back in line. It never runs
// automatically — operators invoke it explicitly.
func (e *Engine) Reconcile(ctx context.Context, ownerID string) (int, error) {
	agents, err := e.store.ListAgentsByOwner(ctx, ownerID, 0)
	if err != nil {
		return 0, fmt.Errorf("listing agents: %w", err)
	}

	corrected := 0
	for _, agent := range agents {
		actual, err := e.store.CountClientsByAgent(ctx, agent.ID)
		if err != nil {
			return corrected, fmt.Errorf("counting clients for %s: %w", agent.ID, err)
		}
		if actual == agent.ClientsHandled {
			continue
		}

		e.logger.Warn("correcting drifted client count",
			"agent_id", agent.ID,
			"recorded", agent.ClientsHandled,
			"actual", actual)

		agent.ClientsHandled = actual
		if err := e.store.UpdateUser(ctx, agent); err != nil {
			return corrected, fmt.Errorf("updating agent %s: %w", agent.ID, err)
		}
		corrected++
	}

	return corrected, nil
}
