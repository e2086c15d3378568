package echoapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/smartclass/attendance/core"
	"github.com/smartclass/attendance/core/command"
	"github.com/smartclass/attendance/core/session"
)

type attendanceApi struct {
	svc       *session.Service
	channel   command.Channel
	uploadDir string
}

func registerAttendanceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *session.Service,
	channel command.Channel,
	conf *core.Config,
) {
	api := attendanceApi{svc: svc, channel: channel, uploadDir: conf.UploadDir}

	ag := g.Group("/attendance")

	// device-facing endpoint; edge devices authenticate at the network
	// layer, not with user JWTs
	ag.POST("/upload_results", api.uploadResults)

	// operator endpoints
	og := ag.Group("", jwt)
	og.POST("/session/start", api.startSession, teacherMiddleware())
	og.POST("/session/:id/end", api.endSession, teacherMiddleware())
	og.GET("/sessions", api.querySessions)
	og.GET("/session/:id", api.retrieveSession)
	og.POST("/command", api.sendCommand, teacherMiddleware())
}

// Handlers

func (api *attendanceApi) startSession(ctx echo.Context) error {
	var data session.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	op, err := getContextOperator(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context operator")
	}

	sess, err := api.svc.Open(ctx.Request().Context(), op, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *attendanceApi) endSession(ctx echo.Context) error {
	op, err := getContextOperator(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context operator")
	}

	summary, err := api.svc.Close(ctx.Request().Context(), op, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, summary)
}

// uploadResults accepts a JSON body, or a multipart form with a `results`
// JSON part plus optional unknown-face snapshots.
func (api *attendanceApi) uploadResults(ctx echo.Context) error {
	var data session.Upload

	contentType := ctx.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		if err := api.bindMultipartUpload(ctx, &data); err != nil {
			return err
		}
	} else if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Upload")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	res, err := api.svc.Ingest(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) bindMultipartUpload(ctx echo.Context, data *session.Upload) error {
	results := ctx.FormValue("results")
	if results == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "results", Error: "this field is required"})
	}
	if err := json.Unmarshal([]byte(results), data); err != nil {
		return core.NewValidationError(errors.New("results is not valid JSON"))
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return errors.Wrap(err, "reading multipart form")
	}
	for i, hdr := range form.File["unknown_faces"] {
		if err = api.saveUnknownFace(data.SessionID, i, hdr); err != nil {
			return err
		}
	}
	return nil
}

func (api *attendanceApi) saveUnknownFace(sessionID string, i int, hdr *multipart.FileHeader) error {
	src, err := hdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer src.Close()

	dir := filepath.Join(api.uploadDir, "unknown_faces", sessionID)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating upload dir")
	}
	name := fmt.Sprintf("%d_%d%s", time.Now().UnixNano(), i, filepath.Ext(hdr.Filename))
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return errors.Wrap(err, "creating upload file")
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return errors.Wrap(err, "saving upload file")
}

func (api *attendanceApi) querySessions(ctx echo.Context) error {
	var filter session.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	if err := filter.Validate(); err != nil {
		return err
	}

	sessions, err := api.svc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *attendanceApi) retrieveSession(ctx echo.Context) error {
	sess, records, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"session": sess,
		"records": records,
	})
}

type CommandRequest struct {
	ClassroomID string         `json:"classroom_id" validate:"required,alphanum_"`
	Command     string         `json:"command" validate:"required"`
	Parameters  command.Params `json:"parameters"`
}

type CommandResponse struct {
	Sent        bool   `json:"sent"`
	ClassroomID string `json:"classroom_id"`
	Command     string `json:"command"`
}

func (cr *CommandRequest) Validate() error {
	cr.ClassroomID = core.CleanString(cr.ClassroomID)
	cr.Command = core.CleanString(cr.Command)
	if err := core.Validate.Struct(cr); err != nil {
		return err
	}
	if !command.IsDeviceKind(cr.Command) {
		return core.NewValidationError(nil, core.FieldError{Field: "command", Error: "unknown command"})
	}
	return nil
}

// sendCommand dispatches an ad-hoc device command; session lifecycle
// commands are reserved for the session endpoints.
func (api *attendanceApi) sendCommand(ctx echo.Context) error {
	var data CommandRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CommandRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sent := api.channel.Publish(data.ClassroomID, data.Command, data.Parameters)
	return ctx.JSON(http.StatusOK, CommandResponse{
		Sent:        sent,
		ClassroomID: data.ClassroomID,
		Command:     data.Command,
	})
}
