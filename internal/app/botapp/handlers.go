package botapp

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
	"github.com/optrixtrades/funnelbot/internal/domain/model"
	"github.com/optrixtrades/funnelbot/internal/domain/rules"
	tginfra "github.com/optrixtrades/funnelbot/internal/infra/telegram"
	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
	funnelsvc "github.com/optrixtrades/funnelbot/internal/services/funnel"
	verifsvc "github.com/optrixtrades/funnelbot/internal/services/verification"
)

const (
	supportReply          = "📞 Need help? Our support team is here for you."
	vipSignalsLockedReply = "🔒 VIP Signals are available to verified users only."
	statsPlaceholderReply = "📊 Bot statistics will be displayed here."
)

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if a.bot == nil {
		return nil
	}

	command := strings.ToLower(strings.TrimSpace(update.Command))

	switch command {
	case "queue", "verify", "reject", "broadcast", "followups":
		return a.handleAdminCommand(ctx, command, update)
	case "stats":
		if a.isAdmin(update.UserID) {
			return a.handleAdminCommand(ctx, command, update)
		}
	case "start":
		// Entry is throttled inside the funnel service, not here, so one
		// /start charges a single window.
		return a.startFunnel(ctx, update)
	}

	if ok, err := a.gateMessage(ctx, update.ChatID, update.UserID); !ok {
		return err
	}

	switch command {
	case "vipsignals":
		return a.vipSignals(ctx, update)
	case "myaccount":
		return a.myAccount(ctx, update)
	case "support":
		return a.bot.SendMessage(ctx, update.ChatID, supportReply, [][]tginfra.Button{
			{{Label: "Contact Support", Data: rules.CallbackContactSupport}},
		})
	case "stats":
		return a.bot.SendMessage(ctx, update.ChatID, statsPlaceholderReply, nil)
	case "howitworks":
		return a.sendView(ctx, update.ChatID, a.views.WhyFree())
	case "menu":
		if _, err := a.funnel.EnsureUser(ctx, update.UserID, update.FirstName, update.Username); err != nil {
			return err
		}
		return a.sendView(ctx, update.ChatID, a.views.Welcome(update.FirstName))
	case "getmyid":
		return a.bot.SendMessage(ctx, update.ChatID, "Your Telegram ID is: "+strconv.FormatInt(update.UserID, 10), nil)
	}

	return nil
}

func (a *App) startFunnel(ctx context.Context, update tginfra.CommandUpdate) error {
	user, err := a.funnel.Start(ctx, update.UserID, update.FirstName, update.Username)
	if err != nil {
		if _, ok := funnelsvc.IsTooFast(err); ok {
			return a.bot.SendMessage(ctx, update.ChatID, throttleMessageReply, nil)
		}
		return err
	}
	return a.sendView(ctx, update.ChatID, a.views.Welcome(user.FirstName))
}

func (a *App) vipSignals(ctx context.Context, update tginfra.CommandUpdate) error {
	user, err := a.funnel.Profile(ctx, update.UserID)
	if err != nil && !errors.Is(err, pgrepo.ErrUserNotFound) {
		return err
	}
	if user.DepositConfirmed {
		return a.sendView(ctx, update.ChatID, a.views.VIPRequirements())
	}
	return a.bot.SendMessage(ctx, update.ChatID, vipSignalsLockedReply, nil)
}

func (a *App) myAccount(ctx context.Context, update tginfra.CommandUpdate) error {
	user, err := a.funnel.EnsureUser(ctx, update.UserID, update.FirstName, update.Username)
	if err != nil {
		return err
	}
	return a.bot.SendMarkdown(ctx, update.ChatID, accountCard(user), nil)
}

func accountCard(user model.User) string {
	uid := user.UID
	if strings.TrimSpace(uid) == "" {
		uid = "Not submitted yet"
	}
	deposit := "⏳ Not confirmed"
	if user.DepositConfirmed {
		deposit = "✅ Confirmed"
	}

	var b strings.Builder
	b.WriteString("👤 *Your Account*\n\n")
	b.WriteString("*Name:* " + user.FirstName + "\n")
	b.WriteString("*UID:* " + uid + "\n")
	b.WriteString("*Status:* " + registrationLabel(user.RegistrationStatus) + "\n")
	b.WriteString("*Deposit:* " + deposit + "\n")
	b.WriteString("*Member since:* " + user.CreatedAt.UTC().Format("2006-01-02"))
	return b.String()
}

func registrationLabel(status enums.RegistrationStatus) string {
	switch status {
	case enums.RegistrationStatusPending:
		return "Pending review"
	case enums.RegistrationStatusVerified:
		return "Verified"
	case enums.RegistrationStatusRejected:
		return "Rejected"
	default:
		return "Not started"
	}
}

func (a *App) handleText(ctx context.Context, update tginfra.TextUpdate) error {
	if a.bot == nil {
		return nil
	}

	if a.isAdmin(update.UserID) {
		handled, err := a.continueBroadcastCompose(ctx, update)
		if handled || err != nil {
			return err
		}
	}

	if ok, err := a.gateMessage(ctx, update.ChatID, update.UserID); !ok {
		return err
	}

	if _, err := a.funnel.EnsureUser(ctx, update.UserID, update.FirstName, update.Username); err != nil {
		return err
	}

	text := strings.TrimSpace(update.Text)
	if strings.EqualFold(text, "upgrade") {
		return a.sendView(ctx, update.ChatID, a.views.UpgradeInfo())
	}

	if rules.ValidUID(text, a.cfg.Bot.UIDMinLength, a.cfg.Bot.UIDMaxLength) {
		uid, err := a.funnel.SubmitUID(ctx, update.UserID, text)
		if err != nil {
			if errors.Is(err, verifsvc.ErrInvalidUID) {
				return a.sendView(ctx, update.ChatID, a.views.DefaultReply())
			}
			return err
		}
		return a.sendView(ctx, update.ChatID, a.views.UIDReceived(uid))
	}

	return a.sendView(ctx, update.ChatID, a.views.DefaultReply())
}

func (a *App) handlePhoto(ctx context.Context, update tginfra.PhotoUpdate) error {
	if a.bot == nil {
		return nil
	}

	if ok, err := a.gateMessage(ctx, update.ChatID, update.UserID); !ok {
		return err
	}

	if _, err := a.funnel.EnsureUser(ctx, update.UserID, update.FirstName, update.Username); err != nil {
		return err
	}

	state, err := a.funnel.FlowState(ctx, update.UserID)
	if err != nil {
		return err
	}

	tier := enums.AccessTierPremium
	if state.VIP {
		tier = enums.AccessTierVIP
	}

	sub := verifsvc.Submission{
		UserID: update.UserID,
		UID:    state.UID,
		FileID: update.FileID,
		Tier:   tier,
	}

	body, size, _, contentType, err := a.bot.DownloadFile(ctx, update.FileID)
	if err != nil {
		// Request still goes through on the Telegram file id alone.
		a.logger.Warn("download screenshot failed",
			zap.Int64("user_id", update.UserID),
			zap.Error(err))
	} else {
		defer body.Close()
		sub.Body = body
		sub.Size = size
		sub.ContentType = contentType
	}

	req, err := a.verifications.SubmitScreenshot(ctx, sub)
	if err != nil {
		if errors.Is(err, verifsvc.ErrMissingUID) {
			return a.sendView(ctx, update.ChatID, a.views.PhotoWithoutUID())
		}
		return err
	}

	if err := a.funnel.FinishSubmission(ctx, update.UserID); err != nil {
		return err
	}

	if err := a.sendView(ctx, update.ChatID, a.views.Submitted(req.UID)); err != nil {
		return err
	}

	a.notifySubmission(ctx, req)
	return nil
}

// notifySubmission pushes the review card to the admin chat. Failures are
// logged only; the request is already queued and reachable via /queue.
func (a *App) notifySubmission(ctx context.Context, req model.VerificationRequest) {
	adminID := a.cfg.Bot.AdminUserID
	if adminID == 0 {
		a.logger.Warn("admin user id is not configured, review request waits in queue",
			zap.Int64("request_id", req.ID))
		return
	}

	user, err := a.funnel.Profile(ctx, req.UserID)
	if err != nil {
		a.logger.Warn("load user for review card", zap.Int64("user_id", req.UserID), zap.Error(err))
		user = model.User{UserID: req.UserID}
	}

	if err := a.sendView(ctx, adminID, a.views.AdminReview(req, user)); err != nil {
		a.logger.Warn("send review card to admin", zap.Int64("request_id", req.ID), zap.Error(err))
		return
	}

	if req.ScreenshotFileID != "" {
		caption := a.views.ScreenshotCaption(user.FirstName, req.UID)
		if err := a.bot.SendPhoto(ctx, adminID, req.ScreenshotFileID, caption, nil); err != nil {
			a.logger.Warn("forward screenshot to admin", zap.Int64("request_id", req.ID), zap.Error(err))
		}
	}
}

func (a *App) handleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	if a.bot == nil {
		return nil
	}

	if verb, requestID, ok := rules.ParseVerificationCallback(update.Data); ok {
		return a.handleDecisionCallback(ctx, update, verb, requestID)
	}

	if ok, err := a.gateCallback(ctx, update); !ok {
		return err
	}

	if _, err := a.funnel.EnsureUser(ctx, update.UserID, update.FirstName, update.Username); err != nil {
		return err
	}

	if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
		a.logger.Warn("answer callback", zap.String("data", update.Data), zap.Error(err))
	}

	switch update.Data {
	case rules.CallbackStart:
		return a.sendView(ctx, update.ChatID, a.views.Welcome(update.FirstName))

	case rules.CallbackActivation:
		if err := a.funnel.Activation(ctx, update.UserID); err != nil {
			return err
		}
		if err := a.sendView(ctx, update.ChatID, a.views.Activation()); err != nil {
			return err
		}
		a.scheduleWhyFree(ctx, update.ChatID)
		return nil

	case rules.CallbackRegistered:
		if err := a.funnel.Registered(ctx, update.UserID); err != nil {
			return err
		}
		return a.sendView(ctx, update.ChatID, a.views.Registered())

	case rules.CallbackDepositHelp:
		return a.sendView(ctx, update.ChatID, a.views.DepositHelp())

	case rules.CallbackContactSupport:
		return a.bot.SendMessage(ctx, update.ChatID,
			"Please contact our support team at @"+strings.TrimPrefix(a.cfg.Bot.SupportUsername, "@"), nil)

	case rules.CallbackBackToVerification:
		if err := a.funnel.Activation(ctx, update.UserID); err != nil {
			return err
		}
		return a.sendView(ctx, update.ChatID, a.views.Activation())

	case rules.CallbackNotInterested:
		if err := a.funnel.OptOut(ctx, update.UserID); err != nil {
			return err
		}
		return a.sendView(ctx, update.ChatID, a.views.NotInterested())

	case rules.CallbackRemoveFromList:
		if err := a.funnel.OptOut(ctx, update.UserID); err != nil {
			return err
		}
		return a.sendView(ctx, update.ChatID, a.views.RemovedFromList())

	case rules.CallbackVIPRequirements:
		if err := a.funnel.VIPRequirements(ctx, update.UserID); err != nil {
			return err
		}
		return a.sendView(ctx, update.ChatID, a.views.VIPRequirements())

	case rules.CallbackVIPContinue:
		if err := a.funnel.VIPContinue(ctx, update.UserID); err != nil {
			return err
		}
		return a.sendView(ctx, update.ChatID, a.views.VIPInstructions())

	case rules.CallbackFreeTips:
		return a.sendView(ctx, update.ChatID, a.views.FreeTips())

	case rules.CallbackJoinCommunity:
		return a.sendView(ctx, update.ChatID, a.views.JoinCommunity())

	case rules.CallbackMarketAnalysis:
		return a.sendView(ctx, update.ChatID, a.views.MarketAnalysis())

	case rules.CallbackLearningResources:
		return a.sendView(ctx, update.ChatID, a.views.LearningResources())

	case rules.CallbackCommunityRules:
		return a.sendView(ctx, update.ChatID, a.views.CommunityRules())
	}

	a.logger.Debug("unknown callback ignored", zap.String("data", update.Data))
	return nil
}

// scheduleWhyFree delivers the commission explainer a little after the
// activation steps, mirroring the drip feel of the original funnel.
func (a *App) scheduleWhyFree(ctx context.Context, chatID int64) {
	delay := a.cfg.Bot.WhyFreeDelay
	view := a.views.WhyFree()

	if delay <= 0 {
		if err := a.sendView(ctx, chatID, view); err != nil {
			a.logger.Warn("send why-free explainer", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		return
	}

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := a.sendView(ctx, chatID, view); err != nil {
			a.logger.Warn("send why-free explainer", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}()
}
