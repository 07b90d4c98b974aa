package world

import (
	"fmt"

	"logosim.ai/internal/sim/rng"
)

// AgentSet is an insertion-ordered set of agents of one kind. Breed and
// universal sets are live: the world adds and removes members as agents are
// created, die or change breed. Iteration always walks a snapshot, so
// mutations made while iterating never invalidate the walk.
type AgentSet struct {
	kind  AgentKind
	name  string
	breed *Breed

	members []Agent
	index   map[Agent]int
	holes   int
}

func newAgentSet(kind AgentKind, name string) *AgentSet {
	return &AgentSet{kind: kind, name: name, index: map[Agent]int{}}
}

// NewAgentSet builds an unnamed set. Agents of another kind and duplicates
// are ignored.
func NewAgentSet(kind AgentKind, agents ...Agent) *AgentSet {
	s := newAgentSet(kind, "")
	for _, a := range agents {
		if a != nil && a.Kind() == kind {
			s.add(a)
		}
	}
	return s
}

func (s *AgentSet) Kind() AgentKind { return s.kind }
func (s *AgentSet) Name() string    { return s.name }

// Breed returns the breed this set is the member set of, or nil.
func (s *AgentSet) Breed() *Breed { return s.breed }

func (s *AgentSet) String() string {
	if s.name != "" {
		return s.name
	}
	return fmt.Sprintf("(agentset, %d %s)", s.Count(), s.kind)
}

func (s *AgentSet) add(a Agent) {
	if _, ok := s.index[a]; ok {
		return
	}
	s.index[a] = len(s.members)
	s.members = append(s.members, a)
}

func (s *AgentSet) remove(a Agent) {
	i, ok := s.index[a]
	if !ok {
		return
	}
	delete(s.index, a)
	s.members[i] = nil
	s.holes++
	if s.holes > 32 && s.holes*2 > len(s.members) {
		s.compact()
	}
}

func (s *AgentSet) compact() {
	out := s.members[:0]
	for _, a := range s.members {
		if a != nil {
			s.index[a] = len(out)
			out = append(out, a)
		}
	}
	for i := len(out); i < len(s.members); i++ {
		s.members[i] = nil
	}
	s.members = out
	s.holes = 0
}

func (s *AgentSet) clear() {
	s.members = nil
	s.index = map[Agent]int{}
	s.holes = 0
}

// Count is the number of live members.
func (s *AgentSet) Count() int {
	n := 0
	for a := range s.index {
		if !a.Dead() {
			n++
		}
	}
	return n
}

func (s *AgentSet) Empty() bool { return s.Count() == 0 }

func (s *AgentSet) Contains(a Agent) bool {
	if a == nil || a.Dead() {
		return false
	}
	_, ok := s.index[a]
	return ok
}

// Agents returns the live members in insertion order.
func (s *AgentSet) Agents() []Agent {
	out := make([]Agent, 0, len(s.members)-s.holes)
	for _, a := range s.members {
		if a != nil && !a.Dead() {
			out = append(out, a)
		}
	}
	return out
}

// Each calls fn for every member of a snapshot taken on entry, skipping
// members that die before their turn. It stops at the first error.
func (s *AgentSet) Each(fn func(Agent) error) error {
	for _, a := range s.Agents() {
		if a.Dead() {
			continue
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

// With returns the members for which pred holds, as a new unnamed set.
func (s *AgentSet) With(pred func(Agent) (bool, error)) (*AgentSet, error) {
	out := newAgentSet(s.kind, "")
	err := s.Each(func(a Agent) error {
		ok, err := pred(a)
		if ok {
			out.add(a)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OneOf picks a uniformly random live member, or nil when the set is empty.
func (s *AgentSet) OneOf(r *rng.Stream) Agent {
	as := s.Agents()
	if len(as) == 0 {
		return nil
	}
	return as[r.Intn(len(as))]
}

// Shuffled starts a lazy random-order walk over the current members.
func (s *AgentSet) Shuffled(r *rng.Stream) *Shufflerator {
	return NewShufflerator(s.Agents(), r)
}

// Shufflerator yields agents in random order, drawing one random number per
// element as it goes (a lazy Fisher-Yates over a private copy). Agents that
// die before they are reached are skipped.
type Shufflerator struct {
	agents []Agent
	i      int
	r      *rng.Stream
}

func NewShufflerator(agents []Agent, r *rng.Stream) *Shufflerator {
	return &Shufflerator{agents: append([]Agent(nil), agents...), r: r}
}

// Next returns the next live agent, or false once the walk is exhausted.
func (sh *Shufflerator) Next() (Agent, bool) {
	for sh.i < len(sh.agents) {
		i := sh.i
		if i < len(sh.agents)-1 {
			j := i + sh.r.Intn(len(sh.agents)-i)
			sh.agents[i], sh.agents[j] = sh.agents[j], sh.agents[i]
		}
		a := sh.agents[i]
		sh.agents[i] = nil
		sh.i++
		if a != nil && !a.Dead() {
			return a, true
		}
	}
	return nil, false
}

// Drain consumes the remaining walk into a slice.
func (sh *Shufflerator) Drain() []Agent {
	var out []Agent
	for {
		a, ok := sh.Next()
		if !ok {
			return out
		}
		out = append(out, a)
	}
}
