package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	tginfra "github.com/optrixtrades/funnelbot/internal/infra/telegram"
)

var (
	ErrNotConfigured = errors.New("premium channel is not configured")
	ErrMissingRights = errors.New("bot lacks rights to manage the channel")
)

type TelegramChannel interface {
	IsChannelMember(ctx context.Context, channelID, userID int64) (bool, error)
	CreateChannelInvite(ctx context.Context, channelID int64, ttl time.Duration) (string, error)
}

// Grant is the outcome of an access grant: either the user already sits in
// the channel, or a fresh single-use invite link to hand them.
type Grant struct {
	AlreadyMember bool
	InviteLink    string
}

// Service hands out premium channel access. Bots cannot place members into a
// channel directly, so a grant is always a one-member invite link.
type Service struct {
	tg        TelegramChannel
	channelID int64
	inviteTTL time.Duration
	logger    *zap.Logger
}

func NewService(tg TelegramChannel, channelID int64, inviteTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tg:        tg,
		channelID: channelID,
		inviteTTL: inviteTTL,
		logger:    logger,
	}
}

func (s *Service) GrantAccess(ctx context.Context, userID int64) (Grant, error) {
	if s.tg == nil || s.channelID == 0 {
		return Grant{}, ErrNotConfigured
	}
	if userID <= 0 {
		return Grant{}, fmt.Errorf("invalid user id")
	}

	member, err := s.tg.IsChannelMember(ctx, s.channelID, userID)
	if err != nil {
		// A failed lookup is not fatal: invite creation below gives the
		// definitive answer.
		s.logger.Warn("channel membership check failed",
			zap.Int64("user_id", userID),
			zap.Int64("channel_id", s.channelID),
			zap.Error(err))
	}
	if member {
		return Grant{AlreadyMember: true}, nil
	}

	link, err := s.tg.CreateChannelInvite(ctx, s.channelID, s.inviteTTL)
	if err != nil {
		switch {
		case tginfra.IsAlreadyParticipant(err):
			return Grant{AlreadyMember: true}, nil
		case tginfra.IsBotMissingRights(err):
			s.logger.Warn("bot cannot create channel invite",
				zap.Int64("channel_id", s.channelID),
				zap.Error(err))
			return Grant{}, ErrMissingRights
		default:
			return Grant{}, fmt.Errorf("create channel invite: %w", err)
		}
	}

	return Grant{InviteLink: link}, nil
}

func (s *Service) IsMember(ctx context.Context, userID int64) (bool, error) {
	if s.tg == nil || s.channelID == 0 {
		return false, ErrNotConfigured
	}
	return s.tg.IsChannelMember(ctx, s.channelID, userID)
}
