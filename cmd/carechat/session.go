package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wolfman30/care-coordinator/internal/chat"
)

// messageCreator is the API surface a session needs.
type messageCreator interface {
	CreateMessage(ctx context.Context, history []chat.Message, patientID string) (chat.Message, error)
}

// session is one terminal conversation. The history only grows when a turn
// succeeds, so a failed request can simply be retried.
type session struct {
	api       messageCreator
	patientID string
	history   *chat.History
	out       io.Writer
	typeDelay time.Duration
}

func newSession(api messageCreator, patientID string, out io.Writer) *session {
	history, _ := chat.NewHistory()
	return &session{api: api, patientID: patientID, history: history, out: out}
}

func (s *session) run(ctx context.Context, in io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintln(s.out, titleStyle.Render("Care Coordinator Assistant"))
	fmt.Fprintln(s.out, hintStyle.Render("/reset starts over, /quit exits"))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, userLabelStyle.Render("you")+" > ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			s.history, _ = chat.NewHistory()
			fmt.Fprintln(s.out, hintStyle.Render("conversation cleared"))
			continue
		}

		reply, err := s.send(ctx, line)
		if err != nil {
			fmt.Fprintln(s.out, errorStyle.Render(err.Error()))
			continue
		}
		s.print(reply.Content)
	}
}

// send posts the history plus the new user message and records both only
// when the API answers.
func (s *session) send(ctx context.Context, text string) (chat.Message, error) {
	turn := s.history.Fork()
	if err := turn.Append(chat.UserMessage(text)); err != nil {
		return chat.Message{}, err
	}
	reply, err := s.api.CreateMessage(ctx, turn.Messages(), s.patientID)
	if err != nil {
		return chat.Message{}, err
	}
	if err := turn.Append(reply); err != nil {
		return chat.Message{}, err
	}
	s.history = turn
	return reply, nil
}

func (s *session) print(text string) {
	fmt.Fprint(s.out, assistantLabelStyle.Render("assistant")+" > ")
	if s.typeDelay <= 0 {
		fmt.Fprintln(s.out, text)
		return
	}
	for _, r := range text {
		fmt.Fprint(s.out, string(r))
		time.Sleep(s.typeDelay)
	}
	fmt.Fprintln(s.out)
}
