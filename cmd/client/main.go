package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/palemoky/chkobba/internal/client"
	"github.com/palemoky/chkobba/internal/logger"
	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/protocol/codec"
)

const heartbeatInterval = 5 * time.Second

func main() {
	serverAddr := flag.String("server", "localhost:1780", "服务器地址")
	name := flag.String("name", "Bot", "昵称前缀")
	mode := flag.String("mode", protocol.ModeIndividual, "游戏模式 1v1 / 2v2")
	bots := flag.Int("bots", 1, "同时运行的机器人数量")
	logMode := flag.String("log", "debug", "日志模式 debug / release")
	flag.Parse()

	log, err := logger.Init(*logMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverURL := fmt.Sprintf("ws://%s/ws", *serverAddr)
	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= *bots; i++ {
		botName := fmt.Sprintf("%s-%d", *name, i)
		g.Go(func() error {
			return runBot(gctx, serverURL, botName, *mode, log.With(zap.String("bot", botName)))
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("❌ 机器人异常退出", zap.Error(err))
		os.Exit(1)
	}
}

// runBot 连接、加入房间并自动出牌，直到对局结束或 ctx 取消
func runBot(ctx context.Context, serverURL, name, mode string, log *zap.Logger) error {
	c := client.New(serverURL, client.Options{Logger: log, AutoReconnect: true})
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()
	c.StartHeartbeat(ctx, heartbeatInterval)

	if err := c.Join(name, mode, ""); err != nil {
		return err
	}
	log.Info("🤖 已连接，等待匹配", zap.String("player", c.PlayerID()))

	gs := client.NewGameState(c.PlayerID())
	lastTurn := -1
	for {
		select {
		case <-ctx.Done():
			_ = c.Leave()
			return nil

		case <-c.Done():
			return errors.New("连接已关闭")

		case msg := <-c.Receive():
			if msg.Type == protocol.MsgError {
				if p, err := codec.ParsePayload[protocol.ErrorPayload](msg); err == nil {
					log.Warn("⚠️ 服务器拒绝", zap.Int("code", p.Code), zap.String("message", p.Message))
				}
				continue
			}
			if !gs.Apply(msg) {
				continue
			}
			// 重连失败时服务器会分配新身份
			gs.PlayerID = c.PlayerID()

			if gs.Finished {
				log.Info("🏁 对局结束",
					zap.String("winner", gs.Winner),
					zap.String("winning_team", gs.WinningTeam),
					zap.String("reason", gs.EndReason))
				return nil
			}
			if !gs.IsMyTurn() || gs.TurnNumber == lastTurn {
				continue
			}

			move, ok := client.ChooseMove(gs.Hand, gs.Table, gs.CardCounter)
			if !ok {
				continue
			}
			lastTurn = gs.TurnNumber
			if err := play(c, move); err != nil {
				return err
			}
			log.Debug("🃏 出牌", zap.Stringer("kind", move.Kind), zap.String("card", move.Card.String()),
				zap.Strings("captured", move.CapturedIDs()))
		}
	}
}

func play(c *client.Client, move client.Move) error {
	switch move.Kind {
	case client.MoveKoom:
		return c.Koom(move.Card.ID)
	case client.MoveCapture:
		return c.CaptureCards(move.Card.ID, move.CapturedIDs())
	default:
		return c.PlayCard(move.Card.ID)
	}
}
