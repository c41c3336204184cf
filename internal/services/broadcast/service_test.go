package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/optrixtrades/funnelbot/internal/domain/model"
	tginfra "github.com/optrixtrades/funnelbot/internal/infra/telegram"
	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
)

func TestSendToActiveDeliversToEveryActiveUser(t *testing.T) {
	recipients := &fakeRecipients{ids: []int64{11, 22, 33}}
	records := newFakeRecords()
	sender := &fakeSender{}
	metrics := &fakeMetrics{}
	svc := newTestBroadcast(recipients, records, metrics, sender)

	result, err := svc.SendToActive(context.Background(), "  Markets open in one hour.  ")
	if err != nil {
		t.Fatalf("send to active: %v", err)
	}
	if result.Total != 3 || result.Sent != 3 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if len(sender.sent) != 3 {
		t.Fatalf("expected three outbound messages, got %d", len(sender.sent))
	}
	if sender.sent[0].text != "Markets open in one hour." {
		t.Fatalf("expected trimmed message, got %q", sender.sent[0].text)
	}

	record := records.get(result.BroadcastID)
	if record.TotalUsers != 3 || record.SentCount != 3 || record.FailedCount != 0 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if len(metrics.deltas) != 1 || metrics.deltas[0].Broadcasts != 1 {
		t.Fatalf("unexpected metrics: %+v", metrics.deltas)
	}
}

func TestSendToActiveSkipsBlockedRecipients(t *testing.T) {
	recipients := &fakeRecipients{ids: []int64{11, 22, 33}}
	records := newFakeRecords()
	sender := &fakeSender{failFor: map[int64]bool{22: true}}
	svc := newTestBroadcast(recipients, records, &fakeMetrics{}, sender)

	result, err := svc.SendToActive(context.Background(), "Session tonight")
	if err != nil {
		t.Fatalf("send to active: %v", err)
	}
	if result.Sent != 2 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	record := records.get(result.BroadcastID)
	if record.SentCount != 2 || record.FailedCount != 1 {
		t.Fatalf("expected final counts on the record, got %+v", record)
	}
}

func TestSendToActiveRejectsEmptyMessage(t *testing.T) {
	records := newFakeRecords()
	svc := newTestBroadcast(&fakeRecipients{}, records, &fakeMetrics{}, &fakeSender{})

	if _, err := svc.SendToActive(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(records.records) != 0 {
		t.Fatalf("empty broadcast must not be recorded")
	}
}

func TestSendToActiveAbortsWhenRecipientsUnavailable(t *testing.T) {
	recipients := &fakeRecipients{err: errors.New("postgres down")}
	sender := &fakeSender{}
	svc := newTestBroadcast(recipients, newFakeRecords(), &fakeMetrics{}, sender)

	if _, err := svc.SendToActive(context.Background(), "hello"); err == nil {
		t.Fatalf("expected recipient listing failure to surface")
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no sends without a recipient list")
	}
}

func newTestBroadcast(recipients *fakeRecipients, records *fakeRecords, metrics *fakeMetrics, sender *fakeSender) *Service {
	svc := NewService(recipients, records, metrics, sender, Config{}, nil)
	svc.now = func() time.Time {
		return time.Date(2026, time.July, 4, 10, 0, 0, 0, time.UTC)
	}
	return svc
}

type fakeRecipients struct {
	ids []int64
	err error
}

func (f *fakeRecipients) ListActiveIDs(_ context.Context) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}

type fakeRecords struct {
	nextID  int64
	records map[int64]*model.Broadcast
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: make(map[int64]*model.Broadcast)}
}

func (f *fakeRecords) get(id int64) model.Broadcast {
	return *f.records[id]
}

func (f *fakeRecords) Create(_ context.Context, messageText string, totalUsers int) (model.Broadcast, error) {
	f.nextID++
	record := model.Broadcast{
		ID:          f.nextID,
		MessageText: messageText,
		TotalUsers:  totalUsers,
		CreatedAt:   time.Now().UTC(),
	}
	f.records[record.ID] = &record
	return record, nil
}

func (f *fakeRecords) Finish(_ context.Context, id int64, sent, failed int) error {
	record, ok := f.records[id]
	if !ok {
		return errors.New("broadcast record missing")
	}
	record.SentCount = sent
	record.FailedCount = failed
	return nil
}

func (f *fakeRecords) List(_ context.Context, limit int) ([]model.Broadcast, error) {
	items := make([]model.Broadcast, 0, len(f.records))
	for _, record := range f.records {
		items = append(items, *record)
	}
	return items, nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent    []sentMessage
	failFor map[int64]bool
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string, _ [][]tginfra.Button) error {
	if f.failFor[chatID] {
		return errors.New("bot was blocked by the user")
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

type fakeMetrics struct {
	deltas []pgrepo.DailyMetricsDelta
}

func (f *fakeMetrics) Increment(_ context.Context, _ time.Time, delta pgrepo.DailyMetricsDelta) error {
	f.deltas = append(f.deltas, delta)
	return nil
}
