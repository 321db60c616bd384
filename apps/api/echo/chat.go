package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/chat"
)

// SSE events
const (
	eventSession = "session"
	eventChunk   = "chunk"
	eventDone    = "done"
	eventError   = "error"
)

const streamFailedText = "the companion could not answer, please try again"

type chatApi struct {
	svc      *chat.Service
	logger   core.Logger
	validate *validator.Validate
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := chatApi{svc: deps.ChatSvc, logger: deps.Logger, validate: deps.Validate}

	portal := []echo.MiddlewareFunc{jwt, studentMiddleware(auth, deps.StudentSvc)}
	detail := append(portal, uuidParamMiddleware("id"))

	cg := g.Group("/students/chat")
	cg.POST("/start", api.start, portal...)
	cg.POST("/stream", api.stream, portal...)
	cg.GET("/sessions", api.querySessions, portal...)
	cg.GET("/sessions/:id", api.retrieveSession, detail...)
	cg.POST("/sessions/:id/end", api.endSession, detail...)
	cg.GET("/summaries", api.querySummaries, portal...)
}

func (api *chatApi) start(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	started, err := api.svc.Start(ctx.Request().Context(), participant(st))
	if err != nil {
		return errors.Wrap(err, "starting chat")
	}
	return ctx.JSON(http.StatusOK, started)
}

// stream answers a student message with server-sent events.
// Errors raised before the session is known are plain JSON errors.
func (api *chatApi) stream(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data chat.NewMessage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sink := &sseSink{ctx: ctx}
	res, err := api.svc.Exchange(ctx.Request().Context(), participant(st), data, sink)
	if err != nil {
		if !sink.started {
			return errors.Wrap(err, "exchanging messages")
		}
		msg := streamFailedText
		if errors.Cause(err) == chat.ErrSessionEnded {
			msg = chat.ErrSessionEnded.Error()
		} else {
			api.logger.Error(streamFailedText, errors.Wrap(err, "exchanging messages"), core.Person{ID: st.UserID})
		}
		if werr := sink.event(eventError, echo.Map{"error": msg}); werr != nil {
			api.logger.Warn("sending error event", werr)
		}
		return nil
	}
	return sink.event(eventDone, res)
}

func (api *chatApi) querySessions(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	sessions, err := api.svc.List(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "querying chat sessions")
	}
	if sessions == nil {
		sessions = []chat.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *chatApi) retrieveSession(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	sess, err := api.svc.Get(ctx.Request().Context(), st.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding chat session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *chatApi) endSession(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	sum, err := api.svc.End(ctx.Request().Context(), st.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "ending chat session")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *chatApi) querySummaries(ctx echo.Context) error {
	st, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	sums, err := api.svc.Summaries(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "querying chat summaries")
	}
	if sums == nil {
		sums = []chat.Summary{}
	}
	return ctx.JSON(http.StatusOK, sums)
}

// sseSink writes the progress of an exchange as server-sent events.
// The stream only starts once the session is known.
type sseSink struct {
	ctx     echo.Context
	started bool
}

var _ chat.StreamSink = (*sseSink)(nil)

func (s *sseSink) Session(sess chat.Session) error {
	resp := s.ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	s.started = true

	return s.event(eventSession, echo.Map{"session_id": sess.ID, "is_temporary": false})
}

func (s *sseSink) Chunk(content string) error {
	return s.event(eventChunk, echo.Map{"content": content})
}

func (s *sseSink) event(name string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "encoding %s event", name)
	}
	resp := s.ctx.Response()
	if _, err = fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return errors.Wrapf(err, "writing %s event", name)
	}
	resp.Flush()
	return nil
}
