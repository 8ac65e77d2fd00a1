// Package team 2v2 模式下的组队与出牌顺序
package team

import (
	"slices"

	"github.com/palemoky/chkobba/internal/apperrors"
)

// Capacity 每队人数上限
const Capacity = 2

// 固定的两支队伍
const (
	TeamA = "team1"
	TeamB = "team2"
)

// Team 队伍
type Team struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	MemberCount int      `json:"memberCount"`
	Score       int      `json:"score"`
	Members     []string `json:"members"` // 按加入顺序
}

func (t *Team) full() bool {
	return t.MemberCount >= Capacity
}

// Roster 持有两支队伍，由 Session 独占，不做并发保护
type Roster struct {
	teams [2]*Team
}

// NewRoster creates both teams empty.
func NewRoster() *Roster {
	return &Roster{teams: [2]*Team{
		{ID: TeamA, Name: "Team 1"},
		{ID: TeamB, Name: "Team 2"},
	}}
}

// Teams returns both teams, TeamA first.
func (r *Roster) Teams() []*Team {
	return r.teams[:]
}

// Get 根据 ID 获取队伍
func (r *Roster) Get(teamID string) (*Team, bool) {
	for _, t := range r.teams {
		if t.ID == teamID {
			return t, true
		}
	}
	return nil, false
}

// TeamOf returns the id of the team playerID belongs to, or "".
func (r *Roster) TeamOf(playerID string) string {
	for _, t := range r.teams {
		if slices.Contains(t.Members, playerID) {
			return t.ID
		}
	}
	return ""
}

// Assign places a new player. An empty requested id picks the team with fewer members,
// ties going to TeamA. A requested team that is full falls back to the other one.
func (r *Roster) Assign(playerID, requested string) (string, error) {
	if current := r.TeamOf(playerID); current != "" {
		return current, nil
	}
	target, err := r.pick(requested)
	if err != nil {
		return "", err
	}
	r.add(target, playerID)
	return target.ID, nil
}

// Move switches an already assigned player to teamID, following the same
// capacity fallback as Assign.
func (r *Roster) Move(playerID, teamID string) (string, error) {
	current := r.TeamOf(playerID)
	if current == teamID {
		return current, nil
	}
	if _, ok := r.Get(teamID); !ok {
		return "", apperrors.ErrInvalidTeamSelection
	}
	r.Remove(playerID)
	target, err := r.pick(teamID)
	if err != nil {
		// put the player back where they were
		if prev, ok := r.Get(current); ok {
			r.add(prev, playerID)
		}
		return "", err
	}
	r.add(target, playerID)
	return target.ID, nil
}

// Remove takes playerID out of its team, if any.
func (r *Roster) Remove(playerID string) {
	for _, t := range r.teams {
		if i := slices.Index(t.Members, playerID); i >= 0 {
			t.Members = slices.Delete(t.Members, i, i+1)
			t.MemberCount--
			return
		}
	}
}

// Full reports whether both teams have Capacity members.
func (r *Roster) Full() bool {
	return r.teams[0].full() && r.teams[1].full()
}

// TurnOrder alternates teams: A[0], B[0], A[1], B[1]. Only meaningful when Full.
func (r *Roster) TurnOrder() []string {
	a, b := r.teams[0].Members, r.teams[1].Members
	order := make([]string, 0, len(a)+len(b))
	for i := 0; i < len(a) || i < len(b); i++ {
		if i < len(a) {
			order = append(order, a[i])
		}
		if i < len(b) {
			order = append(order, b[i])
		}
	}
	return order
}

// ResetScores zeroes both team scores.
func (r *Roster) ResetScores() {
	for _, t := range r.teams {
		t.Score = 0
	}
}

func (r *Roster) pick(requested string) (*Team, error) {
	a, b := r.teams[0], r.teams[1]
	if requested == "" {
		switch {
		case !a.full() && (a.MemberCount <= b.MemberCount || b.full()):
			return a, nil
		case !b.full():
			return b, nil
		}
		return nil, apperrors.ErrTeamFull
	}

	want, ok := r.Get(requested)
	if !ok {
		return nil, apperrors.ErrInvalidTeamSelection
	}
	if !want.full() {
		return want, nil
	}
	other := a
	if want == a {
		other = b
	}
	if !other.full() {
		return other, nil
	}
	return nil, apperrors.ErrTeamFull
}

func (r *Roster) add(t *Team, playerID string) {
	t.Members = append(t.Members, playerID)
	t.MemberCount++
}
