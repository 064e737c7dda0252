package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/go-tts-studio/internal/job"
	"github.com/example/go-tts-studio/internal/request"
)

const wsWriteTimeout = 10 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsRequest is the inbound frame vocabulary: either a control frame
// (type "cancel") or a synthesis request carrying a mode plus the union of
// the per-mode fields.
type wsRequest struct {
	Type string       `json:"type,omitempty"`
	Mode request.Mode `json:"mode,omitempty"`

	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
	Speaker  string `json:"speaker,omitempty"`
	Instruct string `json:"instruct,omitempty"`

	RefText             string `json:"ref_text,omitempty"`
	XVectorOnly         bool   `json:"x_vector_only_mode,omitempty"`
	ConsentAcknowledged bool   `json:"consent_acknowledged,omitempty"`

	DesignText     string   `json:"design_text,omitempty"`
	DesignLanguage string   `json:"design_language,omitempty"`
	DesignInstruct string   `json:"design_instruct,omitempty"`
	CloneTexts     []string `json:"clone_texts,omitempty"`
	CloneLanguages []string `json:"clone_languages,omitempty"`
}

type wsStatusFrame struct {
	Type     string   `json:"type"`
	Status   string   `json:"status"`
	JobID    string   `json:"job_id,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
}

type wsDoneFrame struct {
	Type  string `json:"type"`
	JobID string `json:"job_id"`
}

type wsErrorFrame struct {
	Type   string `json:"type"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	JobID  string `json:"job_id,omitempty"`
}

type wsFrame struct {
	messageType int
	data        []byte
}

// wsSession is one streaming connection. A single reader goroutine pumps
// frames into inbound; the session loop is the only writer on the
// connection.
type wsSession struct {
	h       *handler
	conn    *websocket.Conn
	inbound chan wsFrame
	done    chan struct{}
	log     *slog.Logger
}

func (h *handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.log.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := &wsSession{
		h:       h,
		conn:    conn,
		inbound: make(chan wsFrame, 8),
		done:    make(chan struct{}),
		log:     h.log.With(slog.String("request_id", requestIDFrom(r.Context()))),
	}
	s.run()
}

func (s *wsSession) run() {
	defer close(s.done)
	defer func() { _ = s.conn.Close() }()

	s.conn.SetReadLimit(s.h.opts.maxUploadBytes + 64*1024)
	go s.readLoop()

	// A session serves one job at a time; after a terminal frame the client
	// may submit the next request on the same connection.
	for {
		frame, ok := <-s.inbound
		if !ok {
			return
		}
		if frame.messageType != websocket.TextMessage {
			continue
		}

		var req wsRequest
		if err := json.Unmarshal(frame.data, &req); err != nil {
			s.sendError("validation_error", "invalid JSON: "+err.Error(), "")
			continue
		}
		if req.Type == "cancel" {
			// No job is active; nothing to cancel.
			continue
		}

		if !s.serve(req) {
			return
		}
	}
}

func (s *wsSession) readLoop() {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			close(s.inbound)
			return
		}
		select {
		case s.inbound <- wsFrame{messageType: mt, data: data}:
		case <-s.done:
			return
		}
	}
}

// serve handles one synthesis request end to end. It returns false when the
// client is gone and the session should end.
func (s *wsSession) serve(req wsRequest) bool {
	spec, keep := s.normalize(req)
	if spec == nil {
		return keep
	}

	j := s.h.jobs.Submit(spec)
	s.sendStatus(string(job.StatusQueued), j.ID, nil)

	updates, cancelWatch, err := s.h.jobs.Watch(j.ID)
	if err != nil {
		s.sendError("internal_error", err.Error(), j.ID)
		return true
	}
	defer cancelWatch()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				s.sendError("internal_error", "job evicted", j.ID)
				return true
			}
			if snap.Status == job.StatusProcessing {
				progress := snap.Progress
				s.sendStatus(string(job.StatusProcessing), j.ID, &progress)
				continue
			}
			if snap.Status.Terminal() {
				return s.finish(snap)
			}
		case frame, ok := <-s.inbound:
			if !ok {
				// Client disconnected mid-job: stop paying for work nobody
				// will collect.
				_, _ = s.h.jobs.Cancel(j.ID)
				return false
			}
			if frame.messageType != websocket.TextMessage {
				continue
			}
			var msg wsRequest
			if err := json.Unmarshal(frame.data, &msg); err != nil {
				continue
			}
			if msg.Type == "cancel" {
				_, _ = s.h.jobs.Cancel(j.ID)
				s.log.Info("websocket cancel received", slog.String("job_id", j.ID))
				continue
			}
			// One active job per session.
			s.sendError("invalid_state", "a job is already active on this session", j.ID)
		}
	}
}

// normalize converts the inbound request into a spec. A nil spec with
// keep=true means a recoverable request error was reported and the session
// stays open.
func (s *wsSession) normalize(req wsRequest) (spec *request.Spec, keep bool) {
	var err error

	switch req.Mode {
	case request.ModeCustomVoice:
		speaker := req.Speaker
		if speaker == "" {
			speaker = "Vivian"
		}
		spec, err = s.h.norm.CustomVoice(request.CustomVoiceRequest{
			Text:     req.Text,
			Language: req.Language,
			Speaker:  speaker,
			Instruct: req.Instruct,
		})
	case request.ModeVoiceDesign:
		spec, err = s.h.norm.VoiceDesign(request.VoiceDesignRequest{
			Text:     req.Text,
			Language: req.Language,
			Instruct: req.Instruct,
		})
	case request.ModeVoiceClone:
		refAudio, ok := s.receiveRefAudio()
		if !ok {
			return nil, false
		}
		spec, err = s.h.norm.VoiceClone(request.VoiceCloneRequest{
			Text:                req.Text,
			Language:            req.Language,
			RefText:             req.RefText,
			Instruct:            req.Instruct,
			XVectorOnly:         req.XVectorOnly,
			ConsentAcknowledged: req.ConsentAcknowledged,
		}, refAudio)
	case request.ModeVoiceDesignClone:
		spec, err = s.h.norm.VoiceDesignClone(designCloneRequest(req))
	default:
		s.sendError("invalid_mode", "unknown mode: "+string(req.Mode), "")
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown mode"),
			time.Now().Add(wsWriteTimeout))
		return nil, false
	}

	if err != nil {
		_, kind := classifyError(err)
		s.sendError(kind, err.Error(), "")
		return nil, true
	}
	return spec, true
}

// receiveRefAudio runs the awaiting_audio handshake: the client must follow
// a voice-clone request with one binary frame of reference audio.
func (s *wsSession) receiveRefAudio() ([]byte, bool) {
	s.sendStatus("awaiting_audio", "", nil)

	for {
		frame, ok := <-s.inbound
		if !ok {
			return nil, false
		}
		if frame.messageType == websocket.BinaryMessage {
			return frame.data, true
		}
	}
}

// finish delivers the terminal frame(s) for a job: binary audio plus done
// on completion, a cancelled status, or an error frame on failure.
func (s *wsSession) finish(snap job.Job) bool {
	switch snap.Status {
	case job.StatusCompleted:
		wav, _, err := s.h.jobs.Result(snap.ID)
		if err != nil || len(wav) == 0 {
			s.sendError("internal_error", "job completed but audio data is missing", snap.ID)
			return true
		}
		_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := s.conn.WriteMessage(websocket.BinaryMessage, wav); err != nil {
			return false
		}
		return s.send(wsDoneFrame{Type: "done", JobID: snap.ID})
	case job.StatusCancelled:
		s.sendStatus(string(job.StatusCancelled), snap.ID, nil)
		return true
	default:
		detail := snap.Error
		if detail == "" {
			detail = "unknown error"
		}
		s.sendError("generation_failed", detail, snap.ID)
		return true
	}
}

func designCloneRequest(req wsRequest) request.VoiceDesignCloneRequest {
	out := request.VoiceDesignCloneRequest{
		DesignText:     req.DesignText,
		DesignLanguage: req.DesignLanguage,
		DesignInstruct: req.DesignInstruct,
		CloneTexts:     req.CloneTexts,
		CloneLanguages: req.CloneLanguages,
	}
	if out.DesignText == "" {
		out.DesignText = req.Text
	}
	if out.DesignLanguage == "" {
		out.DesignLanguage = req.Language
	}
	if out.DesignInstruct == "" {
		out.DesignInstruct = req.Instruct
	}
	if len(out.CloneTexts) == 0 && req.Text != "" {
		out.CloneTexts = []string{req.Text}
		out.CloneLanguages = []string{req.Language}
	}
	return out
}

func (s *wsSession) send(v any) bool {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := s.conn.WriteJSON(v); err != nil {
		s.log.Debug("websocket write failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

func (s *wsSession) sendStatus(status, jobID string, progress *float64) {
	_ = s.send(wsStatusFrame{Type: "status", Status: status, JobID: jobID, Progress: progress})
}

func (s *wsSession) sendError(kind, detail, jobID string) {
	_ = s.send(wsErrorFrame{Type: "error", Error: kind, Detail: detail, JobID: jobID})
}
