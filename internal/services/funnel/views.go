package funnel

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
	"github.com/optrixtrades/funnelbot/internal/domain/model"
	"github.com/optrixtrades/funnelbot/internal/domain/rules"
	tginfra "github.com/optrixtrades/funnelbot/internal/infra/telegram"
)

// View is one funnel screen: message body, inline keyboard, and whether the
// body carries Markdown formatting.
type View struct {
	Text     string
	Keyboard [][]tginfra.Button
	Markdown bool
}

// upgradePrompt is pre-filled into the support chat when a user taps the
// upgrade contact button.
const upgradePrompt = "Hello there, I'll like to UPGRADE to access higher tiers and trading tools."

// Views renders the static funnel screens. The copy is compiled in; only the
// support handle and the broker signup link vary per deployment.
type Views struct {
	supportUsername string
	brokerLink      string
}

func NewViews(supportUsername, brokerLink string) Views {
	return Views{
		supportUsername: strings.TrimPrefix(strings.TrimSpace(supportUsername), "@"),
		brokerLink:      strings.TrimSpace(brokerLink),
	}
}

func (v Views) supportURL() string {
	return "https://t.me/" + v.supportUsername
}

func (v Views) upgradeSupportURL() string {
	return v.supportURL() + "?text=" + url.PathEscape(upgradePrompt)
}

func (v Views) supportRow(label string) []tginfra.Button {
	return []tginfra.Button{{Label: label, URL: v.supportURL()}}
}

func (v Views) Welcome(name string) View {
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	return View{
		Text: "Hey " + name + "\n\n" +
			"Welcome to OPTRIXTRADES\n" +
			"You're one step away from unlocking high-accuracy trading signals, expert strategies, and real trader bonuses, completely free.\n\n" +
			"Here's what you get as a member:\n" +
			"✅ Daily VIP trading signals\n" +
			"✅ Strategy sessions from 6-figure traders\n" +
			"✅ Access to our private trader community\n" +
			"✅ Exclusive signup bonuses (up to $500)\n\n" +
			"👇 Tap below to activate your free VIP access and get started.",
		Keyboard: [][]tginfra.Button{
			{{Label: "➡️ Get Free VIP Access", Data: rules.CallbackActivation}},
			v.supportRow("📞 Contact Support"),
		},
	}
}

func (v Views) Activation() View {
	return View{
		Text: "To activate your free access and join our VIP Signal Channel, follow these steps:\n\n" +
			"1️⃣ Click the link below to register with our official broker partner\n" +
			"[" + v.brokerLink + "]\n" +
			"2️⃣ Deposit $20 or more\n" +
			"3️⃣ Send your proof of deposit\n" +
			"Once your proof has been confirmed, your access will be unlocked immediately\n\n" +
			"The more you deposit, the more powerful your AI access:\n" +
			"✅ $100+ → Full access to OPTRIX Web AI Portal, Live Signals & AI tools.\n\n" +
			"✅ $500+ → Includes:\n" +
			"All available signal alert options\n" +
			"VIP telegram group\n" +
			"Access to private sessions and risk management blueprint\n" +
			"OPTRIX AI Auto-Trading (trades for you automatically)",
		Keyboard: [][]tginfra.Button{
			{{Label: "➡️ I've Registered", Data: rules.CallbackRegistered}},
			{{Label: "➡️ Need support making a deposit", Data: rules.CallbackDepositHelp}},
			v.supportRow("📞 Contact Support"),
		},
	}
}

// WhyFree is sent a short while after the activation instructions.
func (v Views) WhyFree() View {
	return View{
		Text: "Why is it free?\n" +
			"We earn a small commission from the broker through your trading volume, not your money. So we are more focused on your success - the more you win, the better for both of us. ✅\n\n" +
			"Want to unlock even higher-tier bonuses or full bot access?\n" +
			"Send \"UPGRADE\" or contact Admin Support ",
		Keyboard: [][]tginfra.Button{
			{{Label: "📞 Contact Support", URL: v.upgradeSupportURL()}},
		},
	}
}

func (v Views) Registered() View {
	return View{
		Text: "Send in your uid and deposit screenshot on iq option to gain access optrixtrades trades premium signal channel.\n\n" +
			"BONUS: We're hosting a live session soon with exclusive insights. Stay tuned. Get an early access now into our premium channel only limited slots are available.",
		Keyboard: [][]tginfra.Button{
			v.supportRow("📞 Contact Support"),
		},
	}
}

func (v Views) DepositHelp() View {
	return View{
		Text: "Here's how to make a deposit with our broker partner:\n\n" +
			"1. Log in to your account\n" +
			"2. Navigate to the Deposit section\n" +
			"3. Choose your preferred payment method\n" +
			"4. Follow the instructions to complete your deposit\n\n" +
			"💡 Need additional help? Contact our support team.",
		Keyboard: [][]tginfra.Button{
			v.supportRow("📞 Contact Support"),
		},
	}
}

func (v Views) UIDReceived(uid string) View {
	return View{
		Text: "✅ UID received: " + uid + "\n\n" +
			"Great! Now please send a screenshot of your deposit as proof to complete verification.",
	}
}

func (v Views) Submitted(uid string) View {
	return View{
		Text: "✅ **Verification Submitted Successfully!**\n\n" +
			"**Your Details:**\n" +
			"• UID: `" + uid + "`\n" +
			"• Screenshot: Received ✅\n\n" +
			"🔍 **What happens next?**\n" +
			"• Our team will review your submission as soon as possible\n" +
			"• You'll receive a notification once approved\n" +
			"• Access to premium signals will be granted immediately\n\n" +
			"🎯 **While you wait:**\n" +
			"• Join our community discussions\n" +
			"• Check out our free trading tips\n" +
			"• Follow our market updates\n\n" +
			"📞 **Need help?** Contact our support team anytime!\n\n" +
			"🚀 **Excited to have you aboard!**",
		Keyboard: [][]tginfra.Button{
			{
				{Label: "📈 Free Trading Tips", Data: rules.CallbackFreeTips},
				{Label: "💬 Join Community", Data: rules.CallbackJoinCommunity},
			},
			v.supportRow("📞 Contact Support"),
		},
		Markdown: true,
	}
}

func (v Views) PhotoWithoutUID() View {
	return View{
		Text: "📸 I received your photo!\n\n" +
			"To complete verification, please:\n" +
			"1️⃣ Send your UID first\n" +
			"2️⃣ Then send your deposit screenshot\n\n" +
			"💡 **Tip:** Send your UID as a text message, then upload your screenshot.",
	}
}

// AdminReview is the notification sent to the admin when a submission opens a
// pending request. The decision buttons carry the request id.
func (v Views) AdminReview(req model.VerificationRequest, user model.User) View {
	heading := "🔔 **NEW VERIFICATION REQUEST**"
	typeLine := "💎 Premium Access"
	approveLabel := "✅ Approve"
	rejectLabel := "❌ Reject"
	if req.Tier == enums.AccessTierVIP {
		heading = "🔔 **NEW VIP VERIFICATION REQUEST**"
		typeLine = "🌟 VIP Access"
		approveLabel = "✅ Approve VIP"
		rejectLabel = "❌ Reject VIP"
	}

	username := strings.TrimSpace(user.Username)
	if username == "" {
		username = "None"
	}

	return View{
		Text: heading + "\n\n" +
			"**User Details:**\n" +
			"• Name: " + strings.TrimSpace(user.FirstName) + "\n" +
			"• Username: @" + username + "\n" +
			"• User ID: `" + formatInt(user.UserID) + "`\n" +
			"• UID: `" + req.UID + "`\n" +
			"• Type: " + typeLine + "\n" +
			"• Submitted: " + req.CreatedAt.UTC().Format("2006-01-02 15:04:05") + "\n\n" +
			"**Action Required:** Review and approve/reject",
		Keyboard: [][]tginfra.Button{
			{
				{Label: approveLabel, Data: rules.VerificationCallback(rules.VerbApprove, req.ID)},
				{Label: rejectLabel, Data: rules.VerificationCallback(rules.VerbReject, req.ID)},
			},
			{{Label: "👤 View User Profile", Data: rules.VerificationCallback(rules.VerbView, req.ID)}},
		},
		Markdown: true,
	}
}

func (v Views) ScreenshotCaption(firstName, uid string) string {
	return "📸 Deposit screenshot from " + strings.TrimSpace(firstName) + "\nUID: " + uid
}

// Approved congratulates a converted user. The premium group button appears
// only when an invite link was actually issued.
func (v Views) Approved(inviteLink string) View {
	keyboard := make([][]tginfra.Button, 0, 2)
	if strings.TrimSpace(inviteLink) != "" {
		keyboard = append(keyboard, []tginfra.Button{{Label: "💎 Join Premium Group", URL: inviteLink}})
	}
	keyboard = append(keyboard, []tginfra.Button{{Label: "🌟 Join VIP Group", Data: rules.CallbackVIPRequirements}})

	return View{
		Text: "🎉 **VERIFICATION APPROVED!**\n\n" +
			"✅ Congratulations! Your account has been verified successfully.\n\n" +
			"🚀 **You now have access to:**\n" +
			"• Premium trading signals\n" +
			"• VIP community group\n" +
			"• Advanced trading tools\n" +
			"• Priority customer support\n\n" +
			"📈 **Start trading smarter today!**\n\n" +
			"Welcome to the OPTRIXTRADES family! 🎊",
		Keyboard: keyboard,
		Markdown: true,
	}
}

func (v Views) Rejected() View {
	return View{
		Text: "❌ **VERIFICATION REVIEW REQUIRED**\n\n" +
			"We've reviewed your submission and need additional information.\n\n" +
			"📋 **Common issues:**\n" +
			"• Screenshot not clear enough\n" +
			"• UID doesn't match the account\n" +
			"• Deposit amount not visible\n" +
			"• Wrong broker platform\n\n" +
			"🔄 **Next steps:**\n" +
			"• Please resubmit with a clearer screenshot\n" +
			"• Ensure your UID is correct\n" +
			"• Contact support if you need help\n\n" +
			"📞 **Need assistance?** Our team is here to help!",
		Keyboard: [][]tginfra.Button{
			{{Label: "🔄 Resubmit Verification", Data: rules.CallbackActivation}},
			v.supportRow("📞 Contact Support"),
		},
		Markdown: true,
	}
}

func (v Views) VIPApproved(inviteLink string) View {
	groupURL := strings.TrimSpace(inviteLink)
	if groupURL == "" {
		groupURL = v.supportURL()
	}

	return View{
		Text: "🌟 **VIP VERIFICATION APPROVED!**\n\n" +
			"🎉 Congratulations! Your VIP access has been approved successfully.\n\n" +
			"🚀 **You now have exclusive access to:**\n" +
			"• 🎯 High-accuracy VIP trading signals\n" +
			"• 📊 Priority market analysis\n" +
			"• 👥 Direct access to expert traders\n" +
			"• 🧠 Advanced trading strategies\n" +
			"• ⚡ Real-time market alerts\n" +
			"• 💎 Exclusive VIP community\n\n" +
			"📈 **Welcome to the VIP tier!**\n\n" +
			"You're now part of our most exclusive trading community! 🎊",
		Keyboard: [][]tginfra.Button{
			{{Label: "🌟 Join VIP Trading Group", URL: groupURL}},
			v.supportRow("📞 VIP Support"),
		},
		Markdown: true,
	}
}

func (v Views) VIPRejected() View {
	return View{
		Text: "🌟 **VIP VERIFICATION REVIEW REQUIRED**\n\n" +
			"We've reviewed your VIP access submission and need additional information.\n\n" +
			"📋 **Common VIP verification issues:**\n" +
			"• Screenshot quality needs improvement\n" +
			"• UID verification failed\n" +
			"• Deposit amount doesn't meet VIP requirements\n" +
			"• Account details unclear\n\n" +
			"🔄 **Next steps for VIP access:**\n" +
			"• Please resubmit with clearer documentation\n" +
			"• Ensure your UID matches exactly\n" +
			"• Contact VIP support for assistance\n\n" +
			"📞 **VIP Support:** Our team is here to help you get approved!",
		Keyboard: [][]tginfra.Button{
			{{Label: "🔄 Resubmit VIP Verification", Data: rules.CallbackVIPContinue}},
			v.supportRow("📞 Contact VIP Support"),
		},
		Markdown: true,
	}
}

func (v Views) VIPRequirements() View {
	return View{
		Text: "🌟 **VIP GROUP ACCESS REQUIREMENTS**\n\n" +
			"To join our exclusive VIP trading group\n\n" +
			"• Must have a min. deposit of $500+ in your trading account with OptrixTrades partnered broker.\n\n" +
			"🔒 **Verification Process:**\n" +
			"1. Submit your trading account UID\n" +
			"2. Upload a clear screenshot of your $500+ deposit\n" +
			"3. Wait for admin approval\n" +
			"4. Get instant access to Exclusive VIP trading tools\n\n" +
			"💎 **VIP Benefits:**\n" +
			"• Exclusive high-accuracy signals\n" +
			"• Priority market analysis\n" +
			"• Direct access to 6 figures expert traders\n" +
			"• Advanced trading strategies & risk management blueprint\n" +
			"• Fully Automated and highly profitable trading bot\n\n" +
			"Ready to unlock VIP access?",
		Keyboard: [][]tginfra.Button{
			{{Label: "🚀 Continue Registration", Data: rules.CallbackVIPContinue}},
			{{Label: "🔙 Back", Data: rules.CallbackBackToVerification}},
		},
		Markdown: true,
	}
}

func (v Views) VIPInstructions() View {
	return View{
		Text: "🌟 VIP VERIFICATION PROCESS\n\n" +
			"Please follow these steps carefully:\n\n" +
			"Step 1: Please send your trading account UID (User ID) from your broker platform.\n\n" +
			"Step 2: Upload Screenshot\n" +
			"After submitting your UID, you'll need to upload a clear screenshot showing:\n" +
			"• Your account balance\n" +
			"• Recent deposit transaction\n" +
			"• Account details matching your UID\n\n" +
			"Let's start with your UID. Please send it now:",
		Markdown: true,
	}
}

func (v Views) NotInterested() View {
	return View{
		Text: "We understand. Thanks for considering OPTRIXTRADES.\n\n" +
			"If you change your mind, you can always restart with /start.\n\n" +
			"Have a great day!",
	}
}

func (v Views) RemovedFromList() View {
	return View{
		Text: "You've been removed from our follow-up list.\n\n" +
			"If you change your mind in the future, you can always restart with /start.\n\n" +
			"Thanks for your time!",
	}
}

func (v Views) FreeTips() View {
	return View{
		Text: "📈 **FREE TRADING TIPS**\n\n" +
			"🎯 **Today's Market Insights:**\n" +
			"• Always use stop-loss orders to manage risk\n" +
			"• Never risk more than 2-3% of your account per trade\n" +
			"• Follow the trend - 'The trend is your friend'\n" +
			"• Keep a trading journal to track your progress\n" +
			"• Stay updated with economic news and events\n\n" +
			"💡 **Pro Tip:** Start small and scale up as you gain experience!\n\n" +
			"🚀 **Want more advanced strategies?** Get verified for premium access!",
		Keyboard: [][]tginfra.Button{
			{
				{Label: "📊 Market Analysis", Data: rules.CallbackMarketAnalysis},
				{Label: "📚 Learning Resources", Data: rules.CallbackLearningResources},
			},
			{{Label: "🔙 Back", Data: rules.CallbackBackToVerification}},
		},
		Markdown: true,
	}
}

func (v Views) JoinCommunity() View {
	return View{
		Text: "💬 **JOIN OUR TRADING COMMUNITY**\n\n" +
			"🌟 **What you'll get:**\n" +
			"• Daily market discussions\n" +
			"• Trade ideas and analysis\n" +
			"• Support from fellow traders\n" +
			"• Educational content and webinars\n" +
			"• Real-time market alerts\n\n" +
			"👥 **Community Guidelines:**\n" +
			"• Be respectful to all members\n" +
			"• Share knowledge and help others\n" +
			"• No spam or promotional content\n" +
			"• Follow our trading ethics\n\n" +
			"🎉 **Ready to connect with 1000+ traders?**",
		Keyboard: [][]tginfra.Button{
			{{Label: "🚀 Join Now", URL: v.supportURL()}},
			{
				{Label: "📋 Community Rules", Data: rules.CallbackCommunityRules},
				{Label: "🔙 Back", Data: rules.CallbackBackToVerification},
			},
		},
		Markdown: true,
	}
}

func (v Views) MarketAnalysis() View {
	return View{
		Text: "📊 **MARKET ANALYSIS**\n\n" +
			"📈 **Current Market Trends:**\n" +
			"• Major indices showing bullish momentum\n" +
			"• Tech stocks leading the rally\n" +
			"• Commodities showing mixed signals\n" +
			"• Forex markets remain volatile\n\n" +
			"🎯 **Key Levels to Watch:**\n" +
			"• Support: Previous swing lows\n" +
			"• Resistance: Recent highs\n" +
			"• Breakout zones: Consolidation areas\n\n" +
			"⚠️ **Risk Factors:**\n" +
			"• Economic data releases\n" +
			"• Geopolitical tensions\n" +
			"• Central bank decisions\n\n" +
			"💡 **Trading Tip:** Always wait for confirmation before entering trades!",
		Keyboard: [][]tginfra.Button{
			{{Label: "🔙 Back to Tips", Data: rules.CallbackFreeTips}},
		},
		Markdown: true,
	}
}

func (v Views) LearningResources() View {
	return View{
		Text: "📚 **LEARNING RESOURCES**\n\n" +
			"🎓 **Free Educational Content:**\n" +
			"• Trading basics and terminology\n" +
			"• Technical analysis fundamentals\n" +
			"• Risk management strategies\n" +
			"• Market psychology insights\n\n" +
			"📖 **Recommended Reading:**\n" +
			"• 'Trading in the Zone' by Mark Douglas\n" +
			"• 'Technical Analysis of Financial Markets'\n" +
			"• 'The Intelligent Investor' by Benjamin Graham\n\n" +
			"🎥 **Video Tutorials:**\n" +
			"• Chart pattern recognition\n" +
			"• Indicator usage and setup\n" +
			"• Live trading examples\n\n" +
			"🚀 **Want access to premium courses?** Get verified for exclusive content!",
		Keyboard: [][]tginfra.Button{
			{{Label: "🔙 Back to Tips", Data: rules.CallbackFreeTips}},
		},
		Markdown: true,
	}
}

func (v Views) CommunityRules() View {
	return View{
		Text: "📋 **COMMUNITY RULES**\n\n" +
			"✅ **DO:**\n" +
			"• Be respectful and professional\n" +
			"• Share valuable insights and analysis\n" +
			"• Help fellow traders learn and grow\n" +
			"• Follow proper trading etiquette\n" +
			"• Use appropriate language\n\n" +
			"❌ **DON'T:**\n" +
			"• Spam or post irrelevant content\n" +
			"• Share personal financial advice\n" +
			"• Promote other services/channels\n" +
			"• Use offensive or inappropriate language\n" +
			"• Share unverified information\n\n" +
			"⚖️ **Violations may result in:**\n" +
			"• Warning from moderators\n" +
			"• Temporary mute\n" +
			"• Permanent ban from community\n\n" +
			"🤝 **Let's build a supportive trading community together!**",
		Keyboard: [][]tginfra.Button{
			{{Label: "🔙 Back to Community", Data: rules.CallbackJoinCommunity}},
		},
		Markdown: true,
	}
}

func (v Views) UpgradeInfo() View {
	return View{
		Text: "🚀 **PREMIUM UPGRADE AVAILABLE**\n\n" +
			"Ready to unlock the full power of OPTRIXTRADES?\n\n" +
			"**Premium Features Include:**\n" +
			"✅ Advanced AI Trading Bot (Auto-trades for you)\n" +
			"✅ VIP Signal Alerts (SMS + Email + Push)\n" +
			"✅ Private 1-on-1 Strategy Sessions\n" +
			"✅ Risk Management Blueprint\n" +
			"✅ Priority Support (24/7)\n" +
			"✅ Exclusive Market Analysis\n\n" +
			"**Pricing:**\n" +
			"• Monthly: $97/month\n" +
			"• Quarterly: $247 (Save $44)\n" +
			"• Annual: $797 (Save $367)\n\n" +
			"Contact our team for upgrade: @" + v.supportUsername,
		Keyboard: [][]tginfra.Button{
			v.supportRow("💬 Contact Support"),
			{{Label: "🔙 Back to Menu", Data: rules.CallbackStart}},
		},
		Markdown: true,
	}
}

func (v Views) DefaultReply() View {
	return View{
		Text: "I've received your message. How can I help you?\n\n" +
			"💡 **Quick Actions:**\n" +
			"• Send your UID to start verification\n" +
			"• Type 'UPGRADE' for premium features\n" +
			"• Use /start to see the main menu",
	}
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
