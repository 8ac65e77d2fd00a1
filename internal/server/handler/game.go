package handler

import (
	"context"

	"github.com/palemoky/chkobba/internal/protocol"
	"github.com/palemoky/chkobba/internal/types"
)

// 游戏操作的合法性全部由房间会话判断，这里只做解析和转发

func (h *Handler) handlePlayCard(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.PlayCardPayload](client, msg)
	if !ok {
		return
	}
	rm, ok := h.roomOf(client)
	if !ok {
		return
	}
	if err := rm.Session().PlayCard(ctx, client.GetID(), payload.CardID); err != nil {
		h.sendError(client, err)
	}
}

func (h *Handler) handleCaptureCards(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.CaptureCardsPayload](client, msg)
	if !ok {
		return
	}
	rm, ok := h.roomOf(client)
	if !ok {
		return
	}
	if err := rm.Session().CaptureCards(ctx, client.GetID(), payload.CardID, payload.CapturedCardIDs); err != nil {
		h.sendError(client, err)
	}
}

func (h *Handler) handleKoom(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.KoomPayload](client, msg)
	if !ok {
		return
	}
	rm, ok := h.roomOf(client)
	if !ok {
		return
	}
	if err := rm.Session().Koom(ctx, client.GetID(), payload.CardID); err != nil {
		h.sendError(client, err)
	}
}

func (h *Handler) handleReorderHand(ctx context.Context, client types.ClientInterface, msg *protocol.Message) {
	payload, ok := parse[protocol.ReorderHandPayload](client, msg)
	if !ok {
		return
	}
	rm, ok := h.roomOf(client)
	if !ok {
		return
	}

	ids := make([]string, len(payload.NewHand))
	for i, c := range payload.NewHand {
		ids[i] = c.ID
	}
	if err := rm.Session().ReorderHand(ctx, client.GetID(), ids); err != nil {
		h.sendError(client, err)
	}
}
