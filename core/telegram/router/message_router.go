package router

import (
	"time"

	tg "github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/telegram"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MessageOptions declares handlers for non-command message updates.
type MessageOptions struct {
	// Photo receives every incoming photo. This is the primary input of the
	// try-on flow, so a nil handler disables the route entirely.
	Photo tele.HandlerFunc
	// UnknownText handles text that is neither a command nor an alias.
	UnknownText tele.HandlerFunc
	// UnexpectedDocument handles images sent as files rather than photos.
	UnexpectedDocument tele.HandlerFunc
}

// MessageRoutes builds photo, text, and document routes for the try-on flow.
func MessageRoutes(reg *tg.Registry, opts MessageOptions) []tg.Route {
	textHandler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	photoHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.Photo != nil {
			return handleWithSummary(c, "photo", start, "", "", func() error {
				return opts.Photo(c)
			})
		}
		logHandlerSummary(c, "photo", start, "skip", "ok", nil)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.UnexpectedDocument != nil {
			return handleWithSummary(c, "unexpected_document", start, "", "", func() error {
				return opts.UnexpectedDocument(c)
			})
		}
		logHandlerSummary(c, "unexpected_document", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnPhoto,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(photoHandler)),
		},
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(textHandler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}
