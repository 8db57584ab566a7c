// Package alert notifies operators of compliance rejections, risk
// transitions and feed errors over Telegram.
package alert

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/mktplane/tradecore/compliance"
	"github.com/mktplane/tradecore/risk"
)

// StatusProvider answers the /status command.
type StatusProvider interface {
	TrackedSecurities() int
	RiskStates() map[string]risk.RiskState
}

// Notifier manages the Telegram interface: outbound alerts and a small set
// of operator commands.
type Notifier struct {
	mu      sync.RWMutex
	api     *tgbotapi.BotAPI
	chatID  int64
	running bool
	stopCh  chan struct{}

	status StatusProvider
}

// NewNotifier creates a Notifier bound to chatID, rejecting an empty bot
// token.
func NewNotifier(token string, chatID int64, status StatusProvider) (*Notifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	n := &Notifier{
		api:    api,
		chatID: chatID,
		stopCh: make(chan struct{}),
		status: status,
	}
	log.Info().Str("username", api.Self.UserName).Msg("telegram notifier initialized")
	return n, nil
}

// Start begins listening for operator commands.
func (n *Notifier) Start() {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return
	}
	n.running = true
	n.mu.Unlock()

	go n.commandLoop()
}

// Stop stops the command loop.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.running {
		return
	}
	n.running = false
	close(n.stopCh)
}

// NotifyStartup announces the process has come up.
func (n *Notifier) NotifyStartup(mode string) {
	n.sendMarkdown(fmt.Sprintf("*tradecore started*\nmode: %s", mode))
}

// NotifyComplianceRejection reports a rejected order.
func (n *Notifier) NotifyComplianceRejection(report compliance.ComplianceReport) {
	n.sendMarkdown(fmt.Sprintf(
		"*compliance rejection*\naccount: %s\norder: %s\nrule: %s (%s)\n%s",
		report.SubmissionAccount, report.OrderId, report.RuleId, report.SchemaName, report.Message))
}

// NotifyRiskTransition reports an account's risk state changing.
func (n *Notifier) NotifyRiskTransition(account string, state risk.RiskState) {
	var label string
	switch state.Type {
	case risk.StateActive:
		label = "active"
	case risk.StateCloseOrders:
		label = "close_orders"
	case risk.StateDisabled:
		label = "disabled"
	default:
		label = "unknown"
	}
	n.sendMarkdown(fmt.Sprintf("*risk transition*\naccount: %s\nstate: %s", account, label))
}

// NotifyError reports an operational error.
func (n *Notifier) NotifyError(err error) {
	n.sendMarkdown(fmt.Sprintf("*error*\n`%s`", err.Error()))
}

func (n *Notifier) commandLoop() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := n.api.GetUpdatesChan(u)

	for {
		select {
		case <-n.stopCh:
			return
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.Chat.ID != n.chatID {
				continue
			}
			n.handleCommand(update.Message)
		}
	}
}

func (n *Notifier) handleCommand(msg *tgbotapi.Message) {
	switch strings.ToLower(msg.Command()) {
	case "start", "help":
		n.send("commands: /status /ping")
	case "status":
		n.cmdStatus()
	case "ping":
		n.send("pong")
	default:
		n.send("unknown command, try /help")
	}
}

func (n *Notifier) cmdStatus() {
	if n.status == nil {
		n.send("status unavailable")
		return
	}
	states := n.status.RiskStates()
	var b strings.Builder
	fmt.Fprintf(&b, "*status*\nsecurities tracked: %d\n", n.status.TrackedSecurities())
	for account, state := range states {
		fmt.Fprintf(&b, "%s: %d\n", account, state.Type)
	}
	n.sendMarkdown(b.String())
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("failed to send telegram message")
	}
}

func (n *Notifier) sendMarkdown(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := n.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("failed to send telegram message")
	}
}

// ParseChatID parses a TELEGRAM_CHAT_ID environment value.
func ParseChatID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id: %w", err)
	}
	return id, nil
}
