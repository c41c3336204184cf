package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeChannel struct {
	member    bool
	memberErr error
	invite    string
	inviteErr error

	inviteCalls int
}

func (f *fakeChannel) IsChannelMember(_ context.Context, _ int64, _ int64) (bool, error) {
	return f.member, f.memberErr
}

func (f *fakeChannel) CreateChannelInvite(_ context.Context, _ int64, _ time.Duration) (string, error) {
	f.inviteCalls++
	return f.invite, f.inviteErr
}

func TestGrantAccessCreatesSingleUseInvite(t *testing.T) {
	tg := &fakeChannel{invite: "https://t.me/+abcdef"}
	svc := NewService(tg, -100200300, time.Hour, nil)

	grant, err := svc.GrantAccess(context.Background(), 42)
	if err != nil {
		t.Fatalf("grant access: %v", err)
	}
	if grant.AlreadyMember {
		t.Fatalf("expected fresh invite, got already-member")
	}
	if grant.InviteLink != "https://t.me/+abcdef" {
		t.Fatalf("unexpected invite link: %s", grant.InviteLink)
	}
}

func TestGrantAccessSkipsExistingMembers(t *testing.T) {
	tg := &fakeChannel{member: true}
	svc := NewService(tg, -100200300, time.Hour, nil)

	grant, err := svc.GrantAccess(context.Background(), 42)
	if err != nil {
		t.Fatalf("grant access: %v", err)
	}
	if !grant.AlreadyMember {
		t.Fatalf("expected already-member grant")
	}
	if tg.inviteCalls != 0 {
		t.Fatalf("invite must not be created for existing members")
	}
}

func TestGrantAccessTreatsParticipantErrorAsMembership(t *testing.T) {
	tg := &fakeChannel{
		inviteErr: &tgbotapi.Error{Code: 400, Message: "Bad Request: user is already a participant"},
	}
	svc := NewService(tg, -100200300, time.Hour, nil)

	grant, err := svc.GrantAccess(context.Background(), 42)
	if err != nil {
		t.Fatalf("grant access: %v", err)
	}
	if !grant.AlreadyMember {
		t.Fatalf("participant error must resolve to membership")
	}
}

func TestGrantAccessReportsMissingRights(t *testing.T) {
	tg := &fakeChannel{
		inviteErr: &tgbotapi.Error{Code: 400, Message: "Bad Request: not enough rights to manage chat invite link"},
	}
	svc := NewService(tg, -100200300, time.Hour, nil)

	if _, err := svc.GrantAccess(context.Background(), 42); !errors.Is(err, ErrMissingRights) {
		t.Fatalf("expected ErrMissingRights, got %v", err)
	}
}

func TestGrantAccessSurvivesMembershipLookupFailure(t *testing.T) {
	tg := &fakeChannel{
		memberErr: errors.New("network timeout"),
		invite:    "https://t.me/+retry",
	}
	svc := NewService(tg, -100200300, time.Hour, nil)

	grant, err := svc.GrantAccess(context.Background(), 42)
	if err != nil {
		t.Fatalf("grant access: %v", err)
	}
	if grant.InviteLink != "https://t.me/+retry" {
		t.Fatalf("expected invite despite lookup failure, got %+v", grant)
	}
}

func TestGrantAccessRequiresConfiguration(t *testing.T) {
	svc := NewService(nil, 0, time.Hour, nil)
	if _, err := svc.GrantAccess(context.Background(), 42); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
