package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
	"github.com/palemoky/chkobba/internal/server/storage"
	"github.com/palemoky/chkobba/internal/types"
)

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := GetClientIP(r)
	log := s.log.With(zap.String("ip", clientIP))

	// 维护模式检查（最优先）
	if s.IsMaintenanceMode() {
		log.Info("🔧 维护模式，拒绝新连接")
		http.Error(w, "Server is under maintenance, please try again later", http.StatusServiceUnavailable)
		return
	}

	if !s.ipFilter.IsAllowed(clientIP) {
		log.Warn("🚫 IP 被过滤器拒绝")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if !s.originChecker.Check(r) {
		log.Warn("🚫 来源验证失败", zap.String("origin", r.Header.Get("Origin")))
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	if !s.rateLimiter.Allow(clientIP) {
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	// 连接数限制，连接关闭时释放
	select {
	case s.semaphore <- struct{}{}:
	default:
		log.Warn("🚫 达到最大连接数限制", zap.Int("max", s.maxConnections))
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		<-s.semaphore
		log.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	client := NewClient(s, conn, clientIP)
	s.registerClient(client)
	ps := s.sessionManager.CreateSession(client.GetID(), client.GetName())

	// 连接成功消息带上重连令牌
	client.SendMessage(codec.MustNewMessage(protocol.MsgConnected, protocol.ConnectedPayload{
		PlayerID:       client.GetID(),
		PlayerName:     client.GetName(),
		ReconnectToken: ps.ReconnectToken,
	}))

	log.Info("✅ 玩家已连接", zap.String("player", client.GetID()), zap.String("name", client.GetName()))

	go func() {
		defer func() { <-s.semaphore }()
		client.ReadPump()
	}()
	go client.WritePump()
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.redis.Ping(r.Context()).Err(); err != nil {
		http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{
		"status":      "ok",
		"online":      s.GetOnlineCount(),
		"activeGames": s.roomManager.GetActiveGamesCount(),
		"maintenance": s.IsMaintenanceMode(),
	})
}

// handleRoomList 房间列表
func (s *Server) handleRoomList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, protocol.RoomListResultPayload{Rooms: s.roomManager.GetRoomList()})
}

// handleLeaderboard 排行榜，?type=total|daily|weekly&offset=&limit=
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	boardType := q.Get("type")
	switch boardType {
	case "":
		boardType = storage.BoardTotal
	case storage.BoardTotal, storage.BoardDaily, storage.BoardWeekly:
	default:
		http.Error(w, "unknown leaderboard type", http.StatusBadRequest)
		return
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if offset < 0 || limit < 0 || limit > 100 {
		http.Error(w, "invalid offset or limit", http.StatusBadRequest)
		return
	}

	entries, err := s.leaderboard.GetLeaderboard(r.Context(), boardType, offset, limit)
	if err != nil {
		s.log.Warn("查询排行榜失败", zap.Error(err))
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, protocol.LeaderboardResultPayload{Type: boardType, Entries: entries})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// registerClient 注册客户端
func (s *Server) registerClient(client *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client.GetID()] = client
}

// unregisterClient 注销客户端，只有登记的仍是这个连接时才返回 true
func (s *Server) unregisterClient(client *Client) bool {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	id := client.GetID()
	if cur, ok := s.clients[id]; !ok || cur != client {
		return false
	}
	delete(s.clients, id)
	s.log.Info("❌ 玩家已断开", zap.String("player", id), zap.String("name", client.GetName()))
	return true
}

// GetClientByID 按玩家 ID 查找在线连接
func (s *Server) GetClientByID(id string) types.ClientInterface {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	if c, ok := s.clients[id]; ok {
		return c
	}
	return nil
}

// RegisterClient 以指定 ID 登记连接，重连时使用
func (s *Server) RegisterClient(id string, client types.ClientInterface) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if c, ok := client.(*Client); ok {
		s.clients[id] = c
	}
}

// UnregisterClient 按 ID 注销连接
func (s *Server) UnregisterClient(id string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, id)
}
