package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/repository/memory"
	"github.com/mamadbah2/supplychain/internal/requestctx"
)

type fakeWhatsApp struct {
	to   []string
	body []string
	err  error
}

func (f *fakeWhatsApp) SendText(_ context.Context, to, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.to = append(f.to, to)
	f.body = append(f.body, body)
	return "wamid.1", nil
}

type failingSink struct{ err error }

func (f failingSink) Notify(context.Context, models.Notification) error { return f.err }

func TestStoreSinkFillsDefaults(t *testing.T) {
	store := memory.New()
	sink := NewStoreSink(store)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	ctx := requestctx.WithTenant(context.Background(), "acme")
	require.NoError(t, sink.Notify(ctx, models.Notification{UserID: "u1", Type: models.NotifyOrderApproved, Title: "t"}))

	inbox, err := sink.Inbox(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.NotEmpty(t, inbox[0].ID)
	assert.Equal(t, "acme", inbox[0].TenantID)
	assert.Equal(t, fixed, inbox[0].CreatedAt)
}

func TestStoreSinkRequiresRecipient(t *testing.T) {
	sink := NewStoreSink(memory.New())
	assert.Error(t, sink.Notify(context.Background(), models.Notification{Title: "t"}))
}

func TestWhatsAppSinkPushesToUserPhone(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.CreateUser(context.Background(), models.User{ID: "u1", Phone: "+224 620 00 00 00", Role: models.RoleShop}))
	require.NoError(t, store.CreateUser(context.Background(), models.User{ID: "u2", Role: models.RoleShop}))

	client := &fakeWhatsApp{}
	sink := NewWhatsAppSink(store, client, nil)

	require.NoError(t, sink.Notify(context.Background(), models.Notification{UserID: "u1", Title: "Delivery scheduled", Message: "tomorrow"}))
	require.NoError(t, sink.Notify(context.Background(), models.Notification{UserID: "u2", Title: "skipped"}))

	require.Len(t, client.to, 1)
	assert.Equal(t, "+224 620 00 00 00", client.to[0])
	assert.Contains(t, client.body[0], "Delivery scheduled")
}

func TestWhatsAppSinkUnknownUser(t *testing.T) {
	sink := NewWhatsAppSink(memory.New(), &fakeWhatsApp{}, nil)
	assert.Error(t, sink.Notify(context.Background(), models.Notification{UserID: "ghost"}))
}

func TestFanoutDeliversToEverySinkAndJoinsErrors(t *testing.T) {
	store := memory.New()
	boom := errors.New("push down")
	fan := NewFanout(NewStoreSink(store), failingSink{err: boom}, nil)

	err := fan.Notify(context.Background(), models.Notification{UserID: "u1", Title: "t"})
	assert.ErrorIs(t, err, boom)

	inbox, err := store.ListNotificationsByUser(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
}

func TestInboxHidesOtherTenants(t *testing.T) {
	store := memory.New()
	sink := NewStoreSink(store)
	acme := requestctx.WithTenant(context.Background(), "acme")

	require.NoError(t, sink.Notify(acme, models.Notification{UserID: "u1", Title: "hi"}))

	mine, err := sink.Inbox(acme, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := sink.Inbox(requestctx.WithTenant(context.Background(), "evil"), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}
