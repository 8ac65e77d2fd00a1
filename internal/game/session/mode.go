package session

import (
	"github.com/palemoky/chkobba/internal/game/score"
	"github.com/palemoky/chkobba/internal/protocol"
)

// modeStrategy 1v1 与 2v2 的差异点：座位数、开局条件、出牌顺序、计分汇总与胜负判定
type modeStrategy interface {
	name() string
	teams() bool
	capacity() int
	// minPlayers 在座人数低于该值时强制结束
	minPlayers() int
	// enoughConnected 在线玩家是否足以继续，断线等待期间的玩家不算
	enoughConnected(s *Session) bool
	canStart(s *Session) bool
	turnOrder(s *Session) []string
	applyRoundScores(s *Session, points map[string]int)
	// winner 返回达到胜利分数的玩家或队伍，ok 为 false 表示继续下一局
	winner(s *Session) (playerID, teamID string, ok bool)
}

func modeFor(gameMode string) modeStrategy {
	if gameMode == protocol.ModeTeam {
		return teamMode{}
	}
	return individualMode{}
}

// --- 1v1 ---

type individualMode struct{}

func (individualMode) name() string    { return protocol.ModeIndividual }
func (individualMode) teams() bool     { return false }
func (individualMode) capacity() int   { return 2 }
func (individualMode) minPlayers() int { return 2 }

func (m individualMode) canStart(s *Session) bool {
	return len(s.players) >= m.minPlayers()
}

func (m individualMode) enoughConnected(s *Session) bool {
	online := 0
	for _, p := range s.players {
		if p.Connected {
			online++
		}
	}
	return online >= m.minPlayers()
}

// turnOrder 按加入顺序
func (individualMode) turnOrder(s *Session) []string {
	order := make([]string, len(s.players))
	for i, p := range s.players {
		order[i] = p.ID
	}
	return order
}

func (individualMode) applyRoundScores(s *Session, points map[string]int) {
	for _, p := range s.players {
		p.Score += points[p.ID]
	}
}

// winner 最高分且达到阈值，同分取先加入者
func (individualMode) winner(s *Session) (string, string, bool) {
	var best *Player
	for _, p := range s.players {
		if p.Score >= score.WinThreshold && (best == nil || p.Score > best.Score) {
			best = p
		}
	}
	if best == nil {
		return "", "", false
	}
	return best.ID, "", true
}

// --- 2v2 ---

type teamMode struct{}

func (teamMode) name() string    { return protocol.ModeTeam }
func (teamMode) teams() bool     { return true }
func (teamMode) capacity() int   { return 4 }
func (teamMode) minPlayers() int { return 4 }

func (m teamMode) canStart(s *Session) bool {
	return len(s.players) == m.capacity() && s.roster.Full()
}

// enoughConnected 每队至少一名队员在线，离线队员由服务器代为出牌
func (teamMode) enoughConnected(s *Session) bool {
	for _, t := range s.roster.Teams() {
		available := false
		for _, id := range t.Members {
			if _, p := s.findPlayer(id); p != nil && p.Connected {
				available = true
				break
			}
		}
		if !available {
			return false
		}
	}
	return true
}

// turnOrder 两队交替：A1 B1 A2 B2
func (teamMode) turnOrder(s *Session) []string {
	return s.roster.TurnOrder()
}

// applyRoundScores 个人分用于展示，队伍分为个人分之和
func (teamMode) applyRoundScores(s *Session, points map[string]int) {
	teamOf := make(map[string]string, len(s.players))
	for _, p := range s.players {
		p.Score += points[p.ID]
		teamOf[p.ID] = p.TeamID
	}
	for teamID, pts := range score.AggregateTeams(points, teamOf) {
		if t, ok := s.roster.Get(teamID); ok {
			t.Score += pts
		}
	}
}

// winner 最高队伍分且达到阈值，同分取 team1
func (teamMode) winner(s *Session) (string, string, bool) {
	bestID, bestScore := "", -1
	for _, t := range s.roster.Teams() {
		if t.Score >= score.WinThreshold && t.Score > bestScore {
			bestID, bestScore = t.ID, t.Score
		}
	}
	if bestID == "" {
		return "", "", false
	}
	return "", bestID, true
}
