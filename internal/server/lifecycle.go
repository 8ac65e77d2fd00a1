package server

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
)

// monitorStats 定期输出服务器状态
func (s *Server) monitorStats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			s.log.Info("📊 [监控]",
				zap.Int("online", s.GetOnlineCount()),
				zap.Int("active_games", s.roomManager.GetActiveGamesCount()),
				zap.Int("goroutines", runtime.NumGoroutine()),
				zap.Int("connections", len(s.semaphore)),
				zap.Int("max_connections", s.maxConnections),
				zap.Float64("alloc_mb", float64(m.Alloc)/1024/1024))
		}
	}
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接和新对局，进行中的对局不受影响
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()

	s.BroadcastToLobby(codec.NewErrorMessage(protocol.ErrCodeServerMaintenance))
	s.log.Info("🔧 进入维护模式：停止新连接和新对局")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

// GracefulShutdown 进入维护模式，等待进行中的对局结束（最多 timeout）后关闭
func (s *Server) GracefulShutdown(timeout time.Duration) {
	s.EnterMaintenanceMode()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.config.Game.ShutdownCheckDuration())
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		activeGames := s.roomManager.GetActiveGamesCount()
		if activeGames == 0 {
			s.log.Info("✅ 所有对局已结束")
			break
		}
		s.log.Info("⏳ 等待对局结束", zap.Int("active_games", activeGames))
		<-ticker.C
	}

	if activeGames := s.roomManager.GetActiveGamesCount(); activeGames > 0 {
		s.log.Warn("⚠️ 等待超时，强制结束剩余对局", zap.Int("active_games", activeGames))
	}

	s.Broadcast(codec.NewErrorMessageWithText(protocol.ErrCodeServerMaintenance,
		fmt.Sprintf("Server is shutting down in %ds.", s.config.Game.RoomCleanupDelay)))
	s.Shutdown()
}

// Shutdown 销毁所有房间，关闭连接和 Redis
func (s *Server) Shutdown() {
	time.Sleep(s.config.Game.RoomCleanupDelayDuration())

	s.roomManager.Shutdown()

	s.clientsMu.RLock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.RUnlock()

	_ = s.redis.Close()
	s.log.Info("服务器已关闭")
}
