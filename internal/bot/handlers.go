package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	tg "github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/telegram"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/telegram/commands"
	tghelpers "github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/telegram/helpers"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/telegram/keyboard"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/history"
)

// CancelAction is the callback key of the inline cancel button.
const CancelAction = "tryon_cancel"

// teleReplier implements Replier on top of a tele.Context.
type teleReplier struct {
	c tele.Context
}

func (r teleReplier) Text(msg string) error {
	return tghelpers.SendText(r.c, msg)
}

func (r teleReplier) PromptCancel(msg string) error {
	return tghelpers.SendTextMarkup(r.c, msg, keyboard.SingleCancelMarkup(CancelAction))
}

func (r teleReplier) Photo(path string) error {
	return tghelpers.SendPhotoFile(r.c, path)
}

// Handlers bridges Telegram updates into the Flow.
type Handlers struct {
	flow *Flow
	bot  *tele.Bot

	// historyDB backs the admin /stats command; nil hides the command.
	historyDB *sqlx.DB
}

// NewHandlers wires the flow to a running bot instance. The bot is needed
// to resolve photo file IDs into download URLs.
func NewHandlers(flow *Flow, b *tele.Bot) *Handlers {
	return &Handlers{flow: flow, bot: b}
}

// Bind attaches the bot instance after routes are built. Must be called
// before polling starts; photo handlers need it to resolve file URLs.
func (h *Handlers) Bind(b *tele.Bot) {
	h.bot = b
}

// WithHistory enables the admin /stats command backed by the given database.
func (h *Handlers) WithHistory(db *sqlx.DB) *Handlers {
	h.historyDB = db
	return h
}

// fileURL builds the Bot API download link for a served file, the same way
// telebot composes it internally.
func fileURL(base, token, filePath string) string {
	if base == "" {
		base = "https://api.telegram.org"
	}
	return base + "/file/bot" + token + "/" + filePath
}

func ids(c tele.Context) (userID, chatID int64) {
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	return userID, chatID
}

// OnPhoto dispatches an incoming photo into the conversation flow.
func (h *Handlers) OnPhoto(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Photo == nil {
		return nil
	}
	// Telegram orders sizes ascending; Photo already references the
	// largest one in telebot.
	file, err := h.bot.FileByID(msg.Photo.FileID)
	if err != nil {
		return fmt.Errorf("resolve photo file: %w", err)
	}
	url := fileURL(h.bot.URL, h.bot.Token, file.FilePath)

	ctx := tghelpers.BuildContext(c)
	userID, chatID := ids(c)
	return h.flow.HandlePhoto(ctx, userID, chatID, url, teleReplier{c: c})
}

// OnText handles non-command text messages.
func (h *Handlers) OnText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID, _ := ids(c)
	return h.flow.HandleText(ctx, userID, teleReplier{c: c})
}

// OnDocument redirects users who sent the image as a file.
func (h *Handlers) OnDocument(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID, _ := ids(c)
	return h.flow.HandleText(ctx, userID, teleReplier{c: c})
}

func (h *Handlers) onStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID, chatID := ids(c)
	return h.flow.Start(ctx, userID, chatID, teleReplier{c: c})
}

func (h *Handlers) onCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID, chatID := ids(c)
	return h.flow.Cancel(ctx, userID, chatID, teleReplier{c: c})
}

func (h *Handlers) onHelp(c tele.Context) error {
	return tghelpers.SendText(c, MsgHelp)
}

func (h *Handlers) onStats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)

	counts, err := history.CountByOutcome(ctx, h.historyDB)
	if err != nil {
		return fmt.Errorf("load outcome counts: %w", err)
	}

	var b strings.Builder
	b.WriteString("Try-on cycles by outcome:\n")
	if len(counts) == 0 {
		b.WriteString("no cycles recorded yet\n")
	}
	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(&b, "%s: %d\n", o, counts[o])
	}

	userID, _ := ids(c)
	recent, err := history.RecentByUser(ctx, h.historyDB, userID, 5)
	if err != nil {
		return fmt.Errorf("load recent cycles: %w", err)
	}
	if len(recent) > 0 {
		b.WriteString("\nYour recent cycles:\n")
		for _, cyc := range recent {
			fmt.Fprintf(&b, "%s %s %dms\n",
				cyc.FinishedAt.Format("2006-01-02 15:04"), cyc.Outcome, cyc.DurationMS)
		}
	}

	return tghelpers.SendText(c, b.String())
}

func (h *Handlers) onCancelCallback(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	userID, chatID := ids(c)
	return h.flow.Cancel(ctx, userID, chatID, teleReplier{c: c})
}

// Register adds the bot's commands and callbacks to the registry.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.onStart,
		Description: "Start the virtual try-on",
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     h.onCancel,
		Description: "Abort the current try-on",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     h.onHelp,
		Description: "How to use the bot",
	})
	if h.historyDB != nil {
		reg.RegisterCommand("/stats", commands.Command{
			Handler:     h.onStats,
			Description: "Try-on history stats",
			AdminOnly:   true,
			Hidden:      true,
		})
	}
	_ = reg.RegisterCallback(CancelAction, h.onCancelCallback)
}

var _ Replier = teleReplier{}
