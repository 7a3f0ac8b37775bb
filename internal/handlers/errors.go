package handlers

import (
	"log"
	"net/http"
)

// respondWithError sends userMsg to the browser and logs the underlying
// error server-side. Parent and child pages share it; the monitoring API
// responds with JSON and has its own error helper.
func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	http.Error(w, userMsg, status)
}
