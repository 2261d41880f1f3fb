package sse

import (
	"bufio"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
)

/*
Stream serves the event stream natively on fiber. The body is written by
fasthttp after the handler returns, so a failed flush is the only disconnect
signal; it ends the subscription.
*/
func (broker *Broker) Stream(c fiber.Ctx) error {
	ch, leave, err := broker.Join()

	if err != nil {
		return fiber.NewError(fiber.StatusGone, err.Error())
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer leave()

		err := broker.pump(nil, ch, func(b []byte) error {
			if _, err := w.Write(b); err != nil {
				return err
			}

			return w.Flush()
		})

		if err != nil {
			log.Debug("event stream closed", "error", err)
		}
	})
}
