package web

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func NewRouter(b *Browser, webPath string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/json/scene", b.HandlerJsonScene).Methods(http.MethodGet)
	r.HandleFunc("/json/node/{id}", b.HandlerJsonNode).Methods(http.MethodGet)
	r.HandleFunc("/json/media", b.HandlerJsonMedia).Methods(http.MethodGet)
	r.HandleFunc("/json/diagnostics", b.HandlerJsonDiagnostics).Methods(http.MethodGet)
	r.HandleFunc("/export/gltf", b.HandlerExportGLTF).Methods(http.MethodGet)
	r.HandleFunc("/dump/scene", b.HandlerDumpScene).Methods(http.MethodGet)
	r.HandleFunc("/upload/scene", b.HandlerUploadScene).Methods(http.MethodPost)
	r.HandleFunc("/status", b.HandlerStatus)

	if webPath != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(webPath)))
	}
	return r
}

func StartServer(addr string, b *Browser, webPath string) error {
	h := handlers.RecoveryHandler()(NewRouter(b, webPath))
	h = handlers.LoggingHandler(os.Stdout, h)

	b.log.Info("Starting server", "addr", addr)

	return http.ListenAndServe(addr, h)
}
