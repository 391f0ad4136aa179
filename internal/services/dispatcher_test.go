package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/avolkov/tg-mirror/internal/config"
	"github.com/avolkov/tg-mirror/internal/domain"
	"github.com/avolkov/tg-mirror/internal/repo"
)

func newDispatcher(t *testing.T, db *gorm.DB, ren Renderer, snd Sender, renderImages bool) *Dispatcher {
	t.Helper()
	return &Dispatcher{
		DB:       db,
		Log:      zerolog.Nop(),
		Resolver: NewResolver(testMirrorConfig()),
		Deliverer: &Deliverer{
			Log:      zerolog.Nop(),
			Renderer: ren,
			Sender:   snd,
			Settings: config.NewSettings(config.MirrorConfig{RenderImages: renderImages}),
		},
	}
}

func seedMirrorPair(t *testing.T, db *gorm.DB, topicID *int64) *domain.Mirror {
	t.Helper()
	ctx := context.Background()
	if _, err := repo.CreateChat(ctx, db, -100111, strptr("Sources"), nil, domain.ChatTypeSupergroup, nil, true, false); err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if _, err := repo.CreateChat(ctx, db, -100222, strptr("Targets"), nil, domain.ChatTypeSupergroup, nil, false, true); err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	m, err := repo.CreateMirror(ctx, db, repo.CreateMirrorParams{
		SourceChatID:  -100111,
		TargetChatID:  -100222,
		TargetTopicID: topicID,
		RenderAsImage: false,
		IncludeMedia:  true,
	})
	if err != nil {
		t.Fatalf("CreateMirror: %v", err)
	}
	return m
}

func sourceInbound(telegramID int64, sender *InboundUser) Inbound {
	text := "hello"
	return Inbound{
		Sender:     sender,
		Chat:       InboundChat{ID: -100111, Title: strptr("Sources"), Type: domain.ChatTypeSupergroup},
		TelegramID: telegramID,
		Text:       &text,
	}
}

func TestDispatch_CopiesAndMarksMirrored(t *testing.T) {
	db := newServicesDB(t)
	seedMirrorPair(t, db, nil)

	snd := &fakeSender{}
	d := newDispatcher(t, db, &fakeRenderer{}, snd, false)

	msg, err := d.Dispatch(context.Background(), sourceInbound(555, &InboundUser{ID: 2, Username: strptr("bob")}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !msg.IsMirrored || msg.MirrorCount != 1 {
		t.Fatalf("expected single mirrored-state transition, got %+v", msg)
	}
	if len(snd.copies) != 1 || snd.copies[0] != -100222 {
		t.Fatalf("expected one copy into -100222, got %v", snd.copies)
	}

	// Entity resolution materialized both records.
	if _, err := repo.GetUser(context.Background(), db, 2); err != nil {
		t.Fatalf("user not materialized: %v", err)
	}
	if _, err := repo.GetChat(context.Background(), db, -100111); err != nil {
		t.Fatalf("chat not materialized: %v", err)
	}
}

func TestDispatch_NoMirrorsLeavesMessageUnmirrored(t *testing.T) {
	db := newServicesDB(t)
	ctx := context.Background()
	if _, err := repo.CreateChat(ctx, db, -100111, nil, nil, domain.ChatTypeSupergroup, nil, true, false); err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	snd := &fakeSender{}
	d := newDispatcher(t, db, &fakeRenderer{}, snd, false)

	msg, err := d.Dispatch(ctx, sourceInbound(1, &InboundUser{ID: 2}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if msg.IsMirrored || msg.MirrorCount != 0 {
		t.Fatalf("message without mirrors must stay unmirrored, got %+v", msg)
	}
	if len(snd.copies) != 0 {
		t.Fatalf("nothing should be sent, got %v", snd.copies)
	}
}

func TestDispatch_ChannelPostWithoutSender(t *testing.T) {
	db := newServicesDB(t)
	seedMirrorPair(t, db, nil)

	snd := &fakeSender{}
	d := newDispatcher(t, db, &fakeRenderer{}, snd, false)

	msg, err := d.Dispatch(context.Background(), sourceInbound(7, nil))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if msg.UserID != nil {
		t.Fatalf("channel post must persist without a user, got %v", *msg.UserID)
	}
	if msg.MirrorCount != 1 {
		t.Fatalf("channel post must still mirror, got %+v", msg)
	}
}

func TestDispatch_FailedDeliveryStillMarksPass(t *testing.T) {
	db := newServicesDB(t)
	seedMirrorPair(t, db, nil)

	snd := &fakeSender{copyErr: errors.New("target unreachable")}
	d := newDispatcher(t, db, &fakeRenderer{}, snd, false)

	msg, err := d.Dispatch(context.Background(), sourceInbound(1, &InboundUser{ID: 2}))
	if err != nil {
		t.Fatalf("a failed delivery must not fail the pass: %v", err)
	}
	if !msg.IsMirrored || msg.MirrorCount != 1 {
		t.Fatalf("pass completed, state must transition once, got %+v", msg)
	}
}

func TestDispatch_SingleTransitionAcrossFanOut(t *testing.T) {
	db := newServicesDB(t)
	seedMirrorPair(t, db, nil)
	ctx := context.Background()

	// Two more mirrors of the same source.
	for _, target := range []int64{-100222, -100222} {
		if _, err := repo.CreateMirror(ctx, db, repo.CreateMirrorParams{SourceChatID: -100111, TargetChatID: target}); err != nil {
			t.Fatalf("CreateMirror: %v", err)
		}
	}

	snd := &fakeSender{}
	d := newDispatcher(t, db, &fakeRenderer{}, snd, false)

	msg, err := d.Dispatch(ctx, sourceInbound(1, &InboundUser{ID: 2}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(snd.copies) != 3 {
		t.Fatalf("expected fan-out to 3 mirrors, got %v", snd.copies)
	}
	if msg.MirrorCount != 1 {
		t.Fatalf("mirror_count increments once per pass, not per mirror: %+v", msg)
	}
}

func TestDispatch_PanickingDeliveryIsIsolated(t *testing.T) {
	db := newServicesDB(t)
	seedMirrorPair(t, db, nil)
	ctx := context.Background()
	if _, err := repo.CreateMirror(ctx, db, repo.CreateMirrorParams{SourceChatID: -100111, TargetChatID: -100222}); err != nil {
		t.Fatalf("CreateMirror: %v", err)
	}

	// First mirror renders and the renderer panics; second mirror copies.
	if err := db.Model(&domain.Mirror{}).Where("id = ?", 1).Update("render_as_image", true).Error; err != nil {
		t.Fatalf("update mirror: %v", err)
	}

	snd := &fakeSender{}
	d := newDispatcher(t, db, &fakeRenderer{panicOnRender: true}, snd, true)

	msg, err := d.Dispatch(ctx, sourceInbound(1, &InboundUser{ID: 2}))
	if err != nil {
		t.Fatalf("a panicking delivery must not fail the pass: %v", err)
	}
	if len(snd.copies) != 1 {
		t.Fatalf("sibling mirror must still be attempted, got %v", snd.copies)
	}
	if msg.MirrorCount != 1 {
		t.Fatalf("expected one transition, got %+v", msg)
	}
}

func TestDispatch_RecordsRenderedArtifact(t *testing.T) {
	db := newServicesDB(t)
	m := seedMirrorPair(t, db, nil)
	ctx := context.Background()
	if err := db.Model(&domain.Mirror{}).Where("id = ?", m.ID).Update("render_as_image", true).Error; err != nil {
		t.Fatalf("update mirror: %v", err)
	}

	snd := &fakeSender{}
	d := newDispatcher(t, db, &fakeRenderer{path: "rendered/m.png"}, snd, true)

	msg, err := d.Dispatch(ctx, sourceInbound(1, &InboundUser{ID: 2}))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if msg.RenderedImagePath == nil || *msg.RenderedImagePath != "rendered/m.png" {
		t.Fatalf("expected artifact path recorded, got %v", msg.RenderedImagePath)
	}
	if len(snd.photos) != 1 {
		t.Fatalf("expected one photo send, got %v", snd.photos)
	}
}

func TestDispatch_RendererSeesSenderAndChat(t *testing.T) {
	db := newServicesDB(t)
	m := seedMirrorPair(t, db, nil)
	ctx := context.Background()
	if err := db.Model(&domain.Mirror{}).Where("id = ?", m.ID).Update("render_as_image", true).Error; err != nil {
		t.Fatalf("update mirror: %v", err)
	}

	ren := &fakeRenderer{path: "rendered/m.png"}
	d := newDispatcher(t, db, ren, &fakeSender{}, true)

	sender := &InboundUser{ID: 2, Username: strptr("bob"), FirstName: strptr("Bob")}
	if _, err := d.Dispatch(ctx, sourceInbound(9, sender)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if ren.gotMsg == nil {
		t.Fatal("renderer was never called")
	}
	if ren.gotMsg.User == nil || ren.gotMsg.User.ID != 2 {
		t.Fatalf("renderer must see the resolved sender, got %+v", ren.gotMsg.User)
	}
	if ren.gotMsg.User.FirstName == nil || *ren.gotMsg.User.FirstName != "Bob" {
		t.Fatalf("sender profile must reach the renderer, got %+v", ren.gotMsg.User)
	}
	if ren.gotMsg.Chat.ID != -100111 || ren.gotMsg.Chat.Title == nil || *ren.gotMsg.Chat.Title != "Sources" {
		t.Fatalf("renderer must see the resolved chat, got %+v", ren.gotMsg.Chat)
	}
}

func TestDispatch_WritesOnlyToTargets(t *testing.T) {
	db := newServicesDB(t)
	seedMirrorPair(t, db, nil)

	snd := &fakeSender{}
	d := newDispatcher(t, db, &fakeRenderer{}, snd, false)

	if _, err := d.Dispatch(context.Background(), sourceInbound(1, &InboundUser{ID: 2})); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	for _, target := range snd.copies {
		if target == -100111 {
			t.Fatal("dispatch must never write back into the source chat")
		}
	}
}
