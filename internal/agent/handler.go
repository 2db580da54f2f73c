package agent

import (
	"context"
	"errors"
	"net/http"
	"time"

	"k8s-agent/internal/command"
	"k8s-agent/internal/observability"
	"k8s-agent/internal/runner"
	"k8s-agent/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Executor runs validated commands; *runner.Executor is the real one.
type Executor interface {
	Execute(ctx context.Context, cmd command.Command) (runner.Result, error)
}

type Handler struct {
	exec Executor
}

func NewHandler(exec Executor) *Handler {
	return &Handler{exec: exec}
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, models.MessageResponse{Message: "Hello World"})
}

func (h *Handler) RunCommand(c *gin.Context) {
	var req models.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Detail: "Invalid request: " + err.Error()})
		return
	}

	cmd, err := command.Validate(req.Command)
	if err != nil {
		observability.RecordCommand(observability.OutcomeRejected, 0)
		log.Warn().Str("command", req.Command).Msg("command rejected")
		c.JSON(statusFor(err), models.ErrorResponse{Detail: err.Error()})
		return
	}

	start := time.Now()
	res, err := h.exec.Execute(c.Request.Context(), cmd)
	if err != nil {
		observability.RecordCommand(observability.OutcomeFailed, time.Since(start))
		log.Error().
			Str("command", cmd.String()).
			Int("exit_code", res.ExitCode).
			Err(err).
			Msg("command failed")
		c.JSON(statusFor(err), models.ErrorResponse{Detail: detailFor(err)})
		return
	}

	observability.RecordCommand(observability.OutcomeSucceeded, time.Since(start))
	log.Info().
		Str("command", cmd.String()).
		Dur("duration", res.Duration).
		Msg("command executed")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(res.Stdout))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, command.ErrRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func detailFor(err error) string {
	var execErr *runner.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Error()
	}
	return runner.ErrorPrefix + err.Error()
}
