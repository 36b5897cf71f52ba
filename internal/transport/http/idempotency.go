package httptransport

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/vladislavdragonenkov/eshop/internal/domain"
)

const (
	// IdempotencyKeyHeader — заголовок с ключом идемпотентности POST-запроса.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader выставляется в ответах, восстановленных из кеша.
	IdempotentReplayHeader = "Idempotent-Replayed"
)

// panicResponseBody совпадает с ответом recoverer и сохраняется, если обработчик паникует.
var panicResponseBody = []byte(`{"success":false,"error":"internal server error"}` + "\n")

// idempotent сохраняет ответ на запрос с Idempotency-Key и воспроизводит его
// для повторов с тем же телом. Без ключа запрос проходит как есть.
func (h *handler) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
		if key == "" || h.idem == nil {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, envelope{Error: "failed to read request body"})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		ctx := r.Context()
		record, err := h.idem.CreateProcessing(ctx, key, requestHash(r, body), h.now().Add(h.idemTTL))
		if err != nil {
			h.replay(w, key, record, err)
			return
		}

		storeCtx := context.WithoutCancel(ctx)
		defer func() {
			if p := recover(); p != nil {
				if err := h.idem.MarkFailed(storeCtx, key, panicResponseBody, http.StatusInternalServerError); err != nil {
					h.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to release idempotency key after panic")
				}
				panic(p)
			}
		}()

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status >= http.StatusBadRequest {
			err = h.idem.MarkFailed(storeCtx, key, rec.body.Bytes(), rec.status)
		} else {
			err = h.idem.MarkDone(storeCtx, key, rec.body.Bytes(), rec.status)
		}
		if err != nil {
			h.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent response")
		}
	})
}

func (h *handler) replay(w http.ResponseWriter, key string, record domain.IdempotencyRecord, createErr error) {
	if !domain.IsIdempotencyConflict(createErr) {
		h.logger.WithError(createErr).WithField("idempotency_key", key).Warn("failed to create idempotency record")
		writeJSON(w, http.StatusInternalServerError, envelope{Error: "failed to initialize idempotency request"})
		return
	}

	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		writeJSON(w, http.StatusUnprocessableEntity, envelope{
			Error: "idempotency key is already used with different request payload",
		})
	default:
		switch record.Status {
		case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set(IdempotentReplayHeader, "true")
			w.WriteHeader(record.HTTPStatus)
			_, _ = w.Write(record.ResponseBody)
		case domain.IdempotencyStatusProcessing:
			writeJSON(w, http.StatusConflict, envelope{
				Error: "request with the same idempotency key is already processing",
			})
		default:
			writeJSON(w, http.StatusInternalServerError, envelope{Error: "unknown idempotency record status"})
		}
	}
}

// requestHash связывает ключ с методом, путём и телом запроса.
func requestHash(r *http.Request, body []byte) string {
	hash := sha256.New()
	_, _ = io.WriteString(hash, r.Method+" "+r.URL.Path+"\n")
	_, _ = hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// recordingWriter дублирует тело ответа в буфер.
type recordingWriter struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (w *recordingWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}
