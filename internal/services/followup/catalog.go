package followup

import (
	"fmt"
	"strings"
	"time"

	"github.com/optrixtrades/funnelbot/internal/domain/rules"
	tginfra "github.com/optrixtrades/funnelbot/internal/infra/telegram"
)

// Plan names accepted by config.
const (
	PlanExtended = "extended"
	PlanCompact  = "compact"
)

const namePlaceholder = "{name}"

// Template is one step of the drip sequence: the minimum silence since the
// user's last interaction before it fires, the message body, and the inline
// keyboard attached to it. Bodies may carry a {name} placeholder.
type Template struct {
	Day       int
	Threshold time.Duration
	Body      string
	Keyboard  [][]tginfra.Button
}

// Plan is an ordered, immutable catalog of follow-up templates. Day 1 is the
// first message after initial contact; the last day is the hard close.
type Plan struct {
	name      string
	templates []Template
}

// PlanByName resolves a configured plan name. An empty name selects the
// extended plan.
func PlanByName(name, supportUsername string) (*Plan, error) {
	switch strings.TrimSpace(name) {
	case "", PlanExtended:
		return ExtendedPlan(supportUsername), nil
	case PlanCompact:
		return CompactPlan(supportUsername), nil
	default:
		return nil, fmt.Errorf("unknown follow-up plan %q", name)
	}
}

func (p *Plan) Name() string {
	return p.name
}

// MaxDay is the catalog size; follow_up_day never exceeds it.
func (p *Plan) MaxDay() int {
	return len(p.templates)
}

func (p *Plan) Template(day int) (Template, bool) {
	if day < 1 || day > len(p.templates) {
		return Template{}, false
	}
	return p.templates[day-1], true
}

// Render fills the {name} placeholder. An empty name falls back to "there",
// matching how the copy was written.
func (p *Plan) Render(day int, name string) (string, [][]tginfra.Button, bool) {
	tpl, ok := p.Template(day)
	if !ok {
		return "", nil, false
	}
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	return strings.ReplaceAll(tpl.Body, namePlaceholder, name), tpl.Keyboard, true
}

func supportURL(username string) string {
	return "https://t.me/" + strings.TrimPrefix(strings.TrimSpace(username), "@")
}

func activationKeyboard(label, supportUsername string) [][]tginfra.Button {
	return [][]tginfra.Button{
		{{Label: label, Data: rules.CallbackActivation}},
		{{Label: "➡️ Contact support team", URL: supportURL(supportUsername)}},
	}
}

// ExtendedPlan is the 24-step cadence: 6h to the first nudge, roughly daily
// afterwards.
func ExtendedPlan(supportUsername string) *Plan {
	day := 24 * time.Hour
	claim := func() [][]tginfra.Button {
		return activationKeyboard("➡️ Claim Free Access Now", supportUsername)
	}

	templates := []Template{
		{
			Day:       1,
			Threshold: 6 * time.Hour,
			Body: "Hey {name} 👋\n\n" +
				"just checking in…\n" +
				"You haven't completed your free VIP access setup yet. If you still want:\n" +
				"✅ Daily signals\n" +
				"✅ Auto trading bot\n" +
				"✅ Bonus deposit rewards\n" +
				"…then don't miss out. Traders are already making serious moves this week.\n" +
				"Tap below to continue your registration. You're just one step away 👇",
			Keyboard: claim(),
		},
		{
			Day:       2,
			Threshold: 23 * time.Hour,
			Body: "⌛ Still thinking, {name}?\n\n" +
				"This could be the shift you've been waiting for. The sooner you move, the better for you.\n" +
				"Free slot won't be open forever.",
			Keyboard: claim(),
		},
		{
			Day:       3,
			Threshold: 22 * time.Hour,
			Body: "👋 Just checking in... You haven't taken the next step yet. Are you having any issues?\n\n" +
				"Let's fix that and get you in before it's too late.",
			Keyboard: claim(),
		},
		{
			Day:       4,
			Threshold: day,
			Body: "👋 Just an update…\n\n" +
				"We've already had many traders activate their access this week and most of them are already " +
				"using the free bot + signals to start profiting.\n\n" +
				"You're still eligible but access may close soon once we hit this week's quota.\n\n" +
				"Don't miss your shot.",
			Keyboard: activationKeyboard("➡️ Complete My Free access.", supportUsername),
		},
		{
			Day:       5,
			Threshold: day,
			Body: "👋 You've come this far. Why stop now, {name}?\n\n" +
				"Everything you need to be a successful trader is on our premium channel\n\n" +
				"Tap the button and let's make it real.",
			Keyboard: claim(),
		},
		{
			Day:       6,
			Threshold: day,
			Body: "⏰ Opportunities don't wait.\n\n" +
				"Every minute you delay, someone else is stepping up.\n\n" +
				"Don't get left behind, {name}.",
			Keyboard: claim(),
		},
		{
			Day:       7,
			Threshold: day,
			Body: "Hey! Just wanted to remind you of everything you get for free once you sign up:\n\n" +
				"✅ Daily VIP signals\n" +
				"✅ Auto-trading bot\n" +
				"✅ Strategy sessions\n" +
				"✅ Private trader group\n" +
				"✅ Up to $500 in deposit bonuses\n\n" +
				"And yes, it's still 100% free when you use our broker link 👇",
			Keyboard: activationKeyboard("➡️ I'm Ready to Activate", supportUsername),
		},
		{
			Day:       8,
			Threshold: day,
			Body: "👋 {name}, just a gentle nudge.\n\n" +
				"Success rewards action, don't let procrastination steal this from you.",
			Keyboard: claim(),
		},
		{
			Day:       9,
			Threshold: day,
			Body: "You saw the message, but didn't move.\n\n" +
				"That's okay, but nothing changes until you do.\n\n" +
				"Make today count, {name}",
			Keyboard: claim(),
		},
		{
			Day:       10,
			Threshold: day,
			Body: "⚡ Quick one, {name}.\n\n" +
				"If you're still interested, act now, thie free spot won't be open forever",
			Keyboard: claim(),
		},
		{
			Day:       11,
			Threshold: day,
			Body: "👋 You've been on our early access list for a few days…\n\n" +
				"If you're still interested but something's holding you back, reply to this message and let's help " +
				"you sort it out.\n\n" +
				"Even if you don't have a big budget right now, we'll guide you to start small and smart.",
			Keyboard: [][]tginfra.Button{
				{{Label: "➡️ I Have a Question", URL: supportURL(supportUsername)}},
				{{Label: "➡️ Continue Activation", Data: rules.CallbackActivation}},
			},
		},
		{
			Day:       12,
			Threshold: day,
			Body: "👋 We don't want you to miss out, {name}.\n\n" +
				"So here's your friendly reminder. Click below and lock in your access.",
			Keyboard: claim(),
		},
		{
			Day:       13,
			Threshold: day,
			Body: "👋 Still on the fence, {name}?\n\n" +
				"What's stopping you? Let's break through that together.\n\n" +
				"One click is all it takes.",
			Keyboard: claim(),
		},
		{
			Day:       14,
			Threshold: day,
			Body: "👋 FINAL REMINDER\n\n" +
				"We're closing registrations today for this round of free VIP access. No promises it'll open again, " +
				"especially not at this level of access.\n\n" +
				"If you want in, this is it.",
			Keyboard: [][]tginfra.Button{
				{{Label: "➡️✅ Count Me In", Data: rules.CallbackActivation}},
				{{Label: "➡️❌ Remove Me From This List", Data: rules.CallbackRemoveFromList}},
			},
		},
		{
			Day:       15,
			Threshold: day,
			Body: "👋 Your wake-up call, {name}.\n\n" +
				"Every hour, someone else makes a move.\n\n" +
				"Be one of them.",
			Keyboard: claim(),
		},
		{
			Day:       16,
			Threshold: day,
			Body: "This is for you, {name}.\n\n" +
				"Not just anyone.\n\n" +
				"You joined for a reason, honor that reason.",
			Keyboard: claim(),
		},
		{
			Day:       17,
			Threshold: day,
			Body: "Wondering if OPTRIXTRADES is legit?\n\n" +
				"We totally get it. That's why we host free sessions, give access to our AI, and don't charge " +
				"upfront.\n\n" +
				"✅ Real traders use us.\n" +
				"✅ Real results.\n" +
				"✅ Real support, 24/7.\n\n" +
				"We only earn a small % when you win. That's why we want to help you trade smarter.\n\n" +
				"Want to test us out with just $20?",
			Keyboard: activationKeyboard("➡️ Try With $20 I'm Curious", supportUsername),
		},
		{
			Day:       18,
			Threshold: day,
			Body: "You deserve better. {name}.\n\n" +
				"And this is the first step.\n\n" +
				"Don't delay the version of you that's waiting to become a profitable trader!",
			Keyboard: claim(),
		},
		{
			Day:       19,
			Threshold: day,
			Body: "Quick reminder, {name}.\n\n" +
				"You haven't taken action. We're holding space, but not for long.",
			Keyboard: claim(),
		},
		{
			Day:       20,
			Threshold: day,
			Body: "Okay… we're starting to think you're ghosting us 😂\n\n" +
				"But seriously, if you've been busy, no stress. Just pick up where you left off and grab your free " +
				"access before this week closes.\n\n" +
				"The AI bot is still available for new traders using our link.",
			Keyboard: activationKeyboard("➡️ Okay, Let's Do This", supportUsername),
		},
		{
			Day:       21,
			Threshold: day,
			Body: "We're still waiting on you, {name}.\n\n" +
				"But not forever. Tap in before the window closes.",
			Keyboard: claim(),
		},
		{
			Day:       22,
			Threshold: day,
			Body: "Don't look back with regret.\n\n" +
				"Moments like this seem small... until they're gone. Act now.",
			Keyboard: claim(),
		},
		{
			Day:       23,
			Threshold: day,
			Body: "Another trader just flipped a $100 deposit into $390 using our AI bot + signal combo in 4 days.\n\n" +
				"We can't guarantee profits, but the tools work when used right.\n\n" +
				"If you missed your shot last time, you're still eligible now 👇",
			Keyboard: activationKeyboard("➡️ Activate My Tools Now", supportUsername),
		},
		{
			Day:       24,
			Threshold: day,
			Body: "👋 Still on the fence?\n\n" +
				"What if you start small with $20, get access to our signals, and scale up when you're ready?\n\n" +
				"No pressure. We've helped hundreds of new traders start from scratch and grow step by step.\n\n" +
				"Ready to test it out?",
			Keyboard: activationKeyboard("➡️ Start Small, Grow Fast", supportUsername),
		},
	}

	return &Plan{name: PlanExtended, templates: templates}
}

// CompactPlan is the 10-step cadence: 4h to the first nudge, then roughly
// every 23h. The two cadences were authored separately and never merged, so
// the bodies overlap but do not match.
func CompactPlan(supportUsername string) *Plan {
	step := 23 * time.Hour
	templates := []Template{
		{
			Day:       1,
			Threshold: 4 * time.Hour,
			Body: "Hey {name} 👋 just checking in…\n" +
				"You haven't completed your free VIP access setup yet. If you still want:\n" +
				"✅ Daily signals\n" +
				"✅ Auto trading bot\n" +
				"✅ Bonus deposit rewards\n" +
				"…then don't miss out. Traders are already making serious moves this week.\n" +
				"Tap below to continue your registration. You're just one step away 👇",
			Keyboard: activationKeyboard("➡️ Claim Free Access Now", supportUsername),
		},
		{
			Day:       2,
			Threshold: 19 * time.Hour,
			Body: "🔥 Just an update…\n" +
				"We've already had 42 traders activate their access this week and most of them are already\n" +
				"using the free bot + signals to start profiting.\n" +
				"You're still eligible but access may close soon once we hit this week's quota.\n" +
				"Don't miss your shot.",
			Keyboard: activationKeyboard("➡️ Complete My Free access", supportUsername),
		},
		{
			Day:       3,
			Threshold: step,
			Body: "Hey! Just wanted to remind you of everything you get for free once you sign up:\n" +
				"✅ Daily VIP signals\n" +
				"✅ Auto-trading bot\n" +
				"✅ Strategy sessions\n" +
				"✅ Private trader group\n" +
				"✅ Up to $500 in deposit bonuses\n" +
				"And yes, it's still 100% free when you use our broker link 👇",
			Keyboard: activationKeyboard("➡️ I'm Ready to Activate", supportUsername),
		},
		{
			Day:       4,
			Threshold: step,
			Body: "👀 You've been on our early access list for a few days…\n" +
				"If you're still interested but something's holding you back, reply to this message and let's help\n" +
				"you sort it out.\n" +
				"Even if you don't have a big budget right now, we'll guide you to start small and smart.",
			Keyboard: [][]tginfra.Button{
				{{Label: "➡️ I Have a Question", URL: supportURL(supportUsername)}},
				{{Label: "➡️ Continue Activation", Data: rules.CallbackActivation}},
			},
		},
		{
			Day:       5,
			Threshold: step,
			Body: "📌 Last call to claim your free access to OPTRIXTRADES.\n" +
				"This week's onboarding closes in a few hours. After that, you'll need to wait for the next batch,\n" +
				"no guarantees it'll still be free.\n" +
				"Want in?",
			Keyboard: [][]tginfra.Button{
				{{Label: "✅ Yes, Activate Me Now", Data: rules.CallbackActivation}},
				{{Label: "❌ Not Interested", Data: rules.CallbackNotInterested}},
			},
		},
		{
			Day:       6,
			Threshold: step,
			Body: "Wondering if OPTRIXTRADES is legit?\n" +
				"We totally get it. That's why we host free sessions, give access to our AI, and don't charge\n" +
				"upfront.\n" +
				"✅ Real traders use us.\n" +
				"✅ Real results.\n" +
				"✅ Real support, 24/7.\n" +
				"We only earn a small % when you win. That's why we want to help you trade smarter.\n" +
				"Want to test us out with just $20?",
			Keyboard: activationKeyboard("➡️ Try With $20 I'm Curious", supportUsername),
		},
		{
			Day:       7,
			Threshold: step,
			Body: "Okay… we're starting to think you're ghosting us 😂\n" +
				"But seriously, if you've been busy, no stress. Just pick up where you left off and grab your free\n" +
				"access before this week closes.\n" +
				"The AI bot is still available for new traders using our link.",
			Keyboard: activationKeyboard("➡️ Okay, Let's Do This", supportUsername),
		},
		{
			Day:       8,
			Threshold: step,
			Body: "Another trader just flipped a $100 deposit into $390 using our AI bot + signal combo in 4 days.\n" +
				"We can't guarantee profits, but the tools work when used right.\n" +
				"If you missed your shot last time, you're still eligible now 👇",
			Keyboard: activationKeyboard("➡️ Activate My Tools Now", supportUsername),
		},
		{
			Day:       9,
			Threshold: step,
			Body: "💡 Still on the fence?\n" +
				"What if you start small with $20, get access to our signals, and scale up when you're ready?\n" +
				"No pressure. We've helped hundreds of new traders start from scratch and grow step by step.\n" +
				"Ready to test it out?",
			Keyboard: activationKeyboard("➡️ Start Small, Grow Fast", supportUsername),
		},
		{
			Day:       10,
			Threshold: step,
			Body: "⏳ FINAL REMINDER\n" +
				"We're closing registrations today for this round of free VIP access. No promises it'll open again,\n" +
				"especially not at this level of access.\n" +
				"If you want in, this is it.",
			Keyboard: [][]tginfra.Button{
				{{Label: "➡️ ✅ Count Me In", Data: rules.CallbackActivation}},
				{{Label: "➡️ ❌ Remove Me From This List", Data: rules.CallbackRemoveFromList}},
			},
		},
	}

	return &Plan{name: PlanCompact, templates: templates}
}
