package botapp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
	"github.com/optrixtrades/funnelbot/internal/domain/model"
	"github.com/optrixtrades/funnelbot/internal/domain/rules"
	tginfra "github.com/optrixtrades/funnelbot/internal/infra/telegram"
	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
	redisrepo "github.com/optrixtrades/funnelbot/internal/repo/redis"
	broadcastsvc "github.com/optrixtrades/funnelbot/internal/services/broadcast"
	channelsvc "github.com/optrixtrades/funnelbot/internal/services/channel"
	funnelsvc "github.com/optrixtrades/funnelbot/internal/services/funnel"
	verifsvc "github.com/optrixtrades/funnelbot/internal/services/verification"
)

const reviewQueueLimit = 10

func (a *App) handleAdminCommand(ctx context.Context, command string, update tginfra.CommandUpdate) error {
	if !a.isAdmin(update.UserID) {
		return a.bot.SendMessage(ctx, update.ChatID, adminCommandDenied, nil)
	}

	switch command {
	case "stats":
		return a.adminStats(ctx, update.ChatID)
	case "queue":
		return a.adminQueue(ctx, update.ChatID)
	case "verify":
		return a.adminDecideCommand(ctx, update.ChatID, update.Args, rules.VerbApprove)
	case "reject":
		return a.adminDecideCommand(ctx, update.ChatID, update.Args, rules.VerbReject)
	case "broadcast":
		return a.adminBroadcast(ctx, update)
	case "followups":
		return a.adminRunFollowUps(ctx, update.ChatID)
	}

	return nil
}

func (a *App) adminStats(ctx context.Context, chatID int64) error {
	snap, err := a.stats.Snapshot(ctx)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("📈 *Bot Statistics*\n\n")
	fmt.Fprintf(&b, "👥 Total users: %d\n", snap.TotalUsers)
	fmt.Fprintf(&b, "🟢 Active users: %d\n", snap.ActiveUsers)
	fmt.Fprintf(&b, "💎 Converted users: %d\n", snap.ConvertedUsers)
	fmt.Fprintf(&b, "📊 Conversion rate: %.1f%%\n", snap.ConversionRate)
	fmt.Fprintf(&b, "⏳ Pending reviews: %d\n", snap.PendingReviews)
	fmt.Fprintf(&b, "🕐 Interactions (24h): %d\n", snap.InteractionsLastDay)
	fmt.Fprintf(&b, "🗂 Cache: %d hits / %d misses\n", snap.CacheHits, snap.CacheMisses)

	if len(snap.UsersByStatus) > 0 {
		b.WriteString("\n*By status:*\n")
		for _, status := range []enums.RegistrationStatus{
			enums.RegistrationStatusNotStarted,
			enums.RegistrationStatusPending,
			enums.RegistrationStatusVerified,
			enums.RegistrationStatusRejected,
		} {
			if count, ok := snap.UsersByStatus[string(status)]; ok {
				fmt.Fprintf(&b, "• %s: %d\n", registrationLabel(status), count)
			}
		}
	}

	if len(snap.FollowUpDays) > 0 {
		b.WriteString("\n*Follow-up day:*\n")
		days := make([]int, 0, len(snap.FollowUpDays))
		for day := range snap.FollowUpDays {
			days = append(days, day)
		}
		sort.Ints(days)
		for _, day := range days {
			fmt.Fprintf(&b, "• day %d: %d\n", day, snap.FollowUpDays[day])
		}
	}

	return a.bot.SendMarkdown(ctx, chatID, b.String(), nil)
}

func (a *App) adminQueue(ctx context.Context, chatID int64) error {
	pending, err := a.verifications.ListPending(ctx, reviewQueueLimit)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return a.bot.SendMessage(ctx, chatID, "✅ No pending verification requests.", nil)
	}

	for _, req := range pending {
		user, err := a.funnel.Profile(ctx, req.UserID)
		if err != nil {
			a.logger.Warn("load user for review card", zap.Int64("user_id", req.UserID), zap.Error(err))
			user = model.User{UserID: req.UserID}
		}
		if err := a.sendView(ctx, chatID, a.views.AdminReview(req, user)); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) adminDecideCommand(ctx context.Context, chatID int64, args, verb string) error {
	userID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || userID <= 0 {
		if verb == rules.VerbApprove {
			return a.bot.SendMessage(ctx, chatID, "Please provide the user ID to verify.", nil)
		}
		return a.bot.SendMessage(ctx, chatID, "Please provide the user ID to reject.", nil)
	}

	req, err := a.verifications.LatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrVerificationNotFound) {
			return a.bot.SendMessage(ctx, chatID, "No verification request found for that user.", nil)
		}
		return err
	}

	return a.decide(ctx, chatID, req.ID, verb)
}

func (a *App) decide(ctx context.Context, adminChatID int64, requestID int64, verb string) error {
	var (
		decision verifsvc.Decision
		err      error
	)
	switch verb {
	case rules.VerbApprove:
		decision, err = a.verifications.Approve(ctx, requestID, "")
	case rules.VerbReject:
		decision, err = a.verifications.Reject(ctx, requestID, "")
	default:
		return nil
	}
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrVerificationDecided):
			return a.bot.SendMessage(ctx, adminChatID,
				fmt.Sprintf("⚠️ Request #%d was already processed.", requestID), nil)
		case errors.Is(err, pgrepo.ErrVerificationNotFound):
			return a.bot.SendMessage(ctx, adminChatID,
				fmt.Sprintf("No verification request #%d found.", requestID), nil)
		}
		return err
	}

	a.notifyDecision(ctx, decision)

	req := decision.Request
	if req.Status == enums.VerificationStatusApproved {
		return a.bot.SendMessage(ctx, adminChatID,
			fmt.Sprintf("✅ Approved verification request #%d for user %d.", req.ID, req.UserID), nil)
	}
	return a.bot.SendMessage(ctx, adminChatID,
		fmt.Sprintf("🚫 Rejected verification request #%d for user %d.", req.ID, req.UserID), nil)
}

// notifyDecision tells the user the verdict. Channel trouble downgrades the
// approval message rather than failing the decision, which is already
// committed at this point.
func (a *App) notifyDecision(ctx context.Context, decision verifsvc.Decision) {
	req := decision.Request

	var view funnelsvc.View
	switch {
	case req.Status == enums.VerificationStatusApproved && req.Tier == enums.AccessTierVIP:
		view = a.views.VIPApproved(a.grantInvite(ctx, req.UserID))
	case req.Status == enums.VerificationStatusApproved:
		view = a.views.Approved(a.grantInvite(ctx, req.UserID))
	case req.Tier == enums.AccessTierVIP:
		view = a.views.VIPRejected()
	default:
		view = a.views.Rejected()
	}

	if err := a.sendView(ctx, req.UserID, view); err != nil {
		a.logger.Warn("send decision notice",
			zap.Int64("user_id", req.UserID),
			zap.Int64("request_id", req.ID),
			zap.Error(err))
	}
}

func (a *App) grantInvite(ctx context.Context, userID int64) string {
	if a.channel == nil {
		return ""
	}

	grant, err := a.channel.GrantAccess(ctx, userID)
	if err != nil {
		if !errors.Is(err, channelsvc.ErrNotConfigured) {
			a.logger.Warn("grant premium channel access", zap.Int64("user_id", userID), zap.Error(err))
		}
		return ""
	}
	if grant.AlreadyMember {
		return ""
	}
	return grant.InviteLink
}

func (a *App) adminBroadcast(ctx context.Context, update tginfra.CommandUpdate) error {
	message := strings.TrimSpace(update.Args)
	if message != "" {
		return a.runBroadcast(ctx, update.ChatID, message)
	}

	state := model.ConversationState{
		UserID: update.UserID,
		Stage:  enums.ConversationStageAwaitingBroadcast,
	}
	if err := a.states.Set(ctx, state, a.cfg.Bot.SessionTTL); err != nil {
		return fmt.Errorf("mark broadcast compose pending: %w", err)
	}
	return a.bot.SendMessage(ctx, update.ChatID, "Please enter the message to broadcast.", nil)
}

// continueBroadcastCompose consumes the admin's next text message after
// /broadcast was issued without arguments.
func (a *App) continueBroadcastCompose(ctx context.Context, update tginfra.TextUpdate) (bool, error) {
	state, err := a.states.Get(ctx, update.UserID)
	if err != nil {
		if errors.Is(err, redisrepo.ErrStateNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read broadcast compose state: %w", err)
	}
	if state.Stage != enums.ConversationStageAwaitingBroadcast {
		return false, nil
	}

	if err := a.states.Clear(ctx, update.UserID); err != nil {
		a.logger.Warn("clear broadcast compose state", zap.Int64("user_id", update.UserID), zap.Error(err))
	}

	return true, a.runBroadcast(ctx, update.ChatID, update.Text)
}

func (a *App) runBroadcast(ctx context.Context, adminChatID int64, message string) error {
	if a.broadcasts == nil {
		return a.bot.SendMessage(ctx, adminChatID, "Broadcast is not available.", nil)
	}

	result, err := a.broadcasts.SendToActive(ctx, message)
	if err != nil {
		if errors.Is(err, broadcastsvc.ErrEmptyMessage) {
			return a.bot.SendMessage(ctx, adminChatID, "Broadcast message cannot be empty.", nil)
		}
		return err
	}

	return a.bot.SendMessage(ctx, adminChatID,
		fmt.Sprintf("📢 Broadcast #%d sent to %d of %d users (%d failed).",
			result.BroadcastID, result.Sent, result.Total, result.Failed), nil)
}

func (a *App) adminRunFollowUps(ctx context.Context, chatID int64) error {
	if a.engine == nil {
		return a.bot.SendMessage(ctx, chatID, "Follow-up engine is not available.", nil)
	}

	result, err := a.engine.RunCycle(ctx)
	if err != nil {
		return err
	}

	return a.bot.SendMessage(ctx, chatID,
		fmt.Sprintf("⏰ Follow-up cycle finished: %d eligible, %d sent, %d failed, %d stale.",
			result.Eligible, result.Sent, result.Failed, result.Stale), nil)
}

func (a *App) handleDecisionCallback(ctx context.Context, update tginfra.CallbackUpdate, verb string, requestID int64) error {
	if !a.isAdmin(update.UserID) {
		return a.bot.AnswerCallback(ctx, update.CallbackID, adminCallbackDenied)
	}

	if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
		a.logger.Warn("answer decision callback", zap.String("data", update.Data), zap.Error(err))
	}

	if verb == rules.VerbView {
		return a.adminViewRequest(ctx, update.ChatID, requestID)
	}
	return a.decide(ctx, update.ChatID, requestID, verb)
}

func (a *App) adminViewRequest(ctx context.Context, chatID int64, requestID int64) error {
	req, err := a.verifications.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrVerificationNotFound) {
			return a.bot.SendMessage(ctx, chatID,
				fmt.Sprintf("No verification request #%d found.", requestID), nil)
		}
		return err
	}

	user, err := a.funnel.Profile(ctx, req.UserID)
	if err != nil {
		a.logger.Warn("load user profile for admin view", zap.Int64("user_id", req.UserID), zap.Error(err))
		user = model.User{UserID: req.UserID}
	}

	return a.bot.SendMarkdown(ctx, chatID, adminProfileCard(req, user), nil)
}

func adminProfileCard(req model.VerificationRequest, user model.User) string {
	username := strings.TrimSpace(user.Username)
	if username == "" {
		username = "None"
	} else {
		username = "@" + username
	}

	uid := strings.TrimSpace(user.UID)
	if uid == "" {
		uid = req.UID
	}

	deposit := "⏳ Not confirmed"
	if user.DepositConfirmed {
		deposit = "✅ Confirmed"
	}

	var b strings.Builder
	b.WriteString("👤 *User Profile*\n\n")
	b.WriteString("*Name:* " + user.FirstName + "\n")
	b.WriteString("*Username:* " + username + "\n")
	fmt.Fprintf(&b, "*User ID:* `%d`\n", user.UserID)
	b.WriteString("*UID:* " + uid + "\n")
	b.WriteString("*Status:* " + registrationLabel(user.RegistrationStatus) + "\n")
	b.WriteString("*Deposit:* " + deposit + "\n")
	fmt.Fprintf(&b, "*Follow-up day:* %d\n", user.FollowUpDay)
	b.WriteString("*Joined:* " + user.CreatedAt.UTC().Format("2006-01-02 15:04:05") + "\n")
	b.WriteString("*Last interaction:* " + user.LastInteraction.UTC().Format("2006-01-02 15:04:05"))
	return b.String()
}
