package funnel

import (
	"strings"
	"testing"
	"time"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
	"github.com/optrixtrades/funnelbot/internal/domain/model"
)

func TestWelcomeFallsBackToGenericGreeting(t *testing.T) {
	views := NewViews("@optrix_support", "https://broker.example/signup")

	view := views.Welcome("  ")
	if !strings.HasPrefix(view.Text, "Hey there") {
		t.Fatalf("expected generic greeting, got %q", view.Text[:20])
	}
	if view.Markdown {
		t.Fatalf("welcome screen is plain text")
	}
}

func TestActivationEmbedsBrokerLink(t *testing.T) {
	views := NewViews("optrix_support", "https://broker.example/signup")

	view := views.Activation()
	if !strings.Contains(view.Text, "[https://broker.example/signup]") {
		t.Fatalf("broker link missing from activation copy")
	}
}

func TestSupportButtonsUseTelegramDeepLink(t *testing.T) {
	views := NewViews("@optrix_support", "https://broker.example/signup")

	view := views.Welcome("Ada")
	support := view.Keyboard[len(view.Keyboard)-1][0]
	if support.URL != "https://t.me/optrix_support" {
		t.Fatalf("unexpected support url %q", support.URL)
	}

	upgrade := views.WhyFree().Keyboard[0][0]
	if !strings.HasPrefix(upgrade.URL, "https://t.me/optrix_support?text=") {
		t.Fatalf("upgrade button must prefill the support chat, got %q", upgrade.URL)
	}
	if strings.Contains(upgrade.URL, " ") {
		t.Fatalf("prefilled message must be escaped, got %q", upgrade.URL)
	}
}

func TestAdminReviewCarriesDecisionCallbacks(t *testing.T) {
	views := NewViews("optrix_support", "https://broker.example/signup")
	req := model.VerificationRequest{
		ID:        42,
		UserID:    7,
		UID:       "87654321",
		Tier:      enums.AccessTierVIP,
		CreatedAt: time.Date(2026, time.July, 4, 9, 30, 0, 0, time.UTC),
	}
	user := model.User{UserID: 7, FirstName: "Ada"}

	view := views.AdminReview(req, user)
	if !strings.Contains(view.Text, "NEW VIP VERIFICATION REQUEST") {
		t.Fatalf("expected VIP heading, got %q", view.Text)
	}
	if !strings.Contains(view.Text, "2026-07-04 09:30:00") {
		t.Fatalf("expected submission timestamp in copy")
	}

	decisions := view.Keyboard[0]
	if decisions[0].Data != "verif:approve:42" || decisions[1].Data != "verif:reject:42" {
		t.Fatalf("unexpected decision callbacks: %+v", decisions)
	}
}

func TestAdminReviewShowsMissingUsernameAsNone(t *testing.T) {
	views := NewViews("optrix_support", "https://broker.example/signup")
	req := model.VerificationRequest{ID: 43, UserID: 8, UID: "11223344", Tier: enums.AccessTierPremium}
	user := model.User{UserID: 8, FirstName: "Bea"}

	view := views.AdminReview(req, user)
	if !strings.Contains(view.Text, "@None") {
		t.Fatalf("expected placeholder for missing username")
	}
}

func TestApprovedOmitsGroupButtonWithoutInvite(t *testing.T) {
	views := NewViews("optrix_support", "https://broker.example/signup")

	withLink := views.Approved("https://t.me/+abc123")
	if withLink.Keyboard[0][0].URL != "https://t.me/+abc123" {
		t.Fatalf("expected premium group button first, got %+v", withLink.Keyboard[0])
	}

	withoutLink := views.Approved("")
	for _, row := range withoutLink.Keyboard {
		for _, btn := range row {
			if strings.Contains(btn.Label, "Premium Group") {
				t.Fatalf("premium group button must be dropped without an invite link")
			}
		}
	}
}

func TestVIPApprovedFallsBackToSupportLink(t *testing.T) {
	views := NewViews("optrix_support", "https://broker.example/signup")

	view := views.VIPApproved("")
	if view.Keyboard[0][0].URL != "https://t.me/optrix_support" {
		t.Fatalf("expected support fallback for the VIP group button, got %q", view.Keyboard[0][0].URL)
	}
}
