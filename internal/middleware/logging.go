package middleware

import (
	"log"
	"net/http"
	"time"
)

// Logging logs every request with its status, response size and
// latency. The edge agent fronts a cashier UI so latency spikes here
// usually mean the upstream link is degrading.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Printf("[HTTP] %s %s -> %d (%dB in %s) %s",
			r.Method, r.URL.Path, rec.status, rec.bytes, time.Since(start), r.RemoteAddr)
	})
}

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}
