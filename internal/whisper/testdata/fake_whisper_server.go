package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

// A stand-in for whisper-server. The model file steers its behavior:
//   "exit"     exits with status 1 before serving
//   "gpu-fail" exits with status 1 unless -ng was given
//   "gpu-missing" logs that no GPU was found unless -ng was given, then serves
//   "slow"     delays every /inference answer by 300ms
// Otherwise /inference answers with the uploaded file's content as text.
func main() {
	var model, host, port string
	var threads int
	var noGPU bool
	flag.StringVar(&model, "m", "", "model path")
	flag.StringVar(&host, "host", "127.0.0.1", "host")
	flag.StringVar(&port, "port", "0", "port")
	flag.IntVar(&threads, "t", 0, "threads")
	flag.BoolVar(&noGPU, "ng", false, "disable gpu")
	flag.Parse()

	b, err := os.ReadFile(model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load model %s: %v\n", model, err)
		os.Exit(1)
	}
	behavior := strings.TrimSpace(string(b))
	switch behavior {
	case "exit":
		fmt.Fprintln(os.Stderr, "whisper_init: invalid model data")
		os.Exit(1)
	case "gpu-fail":
		if !noGPU {
			fmt.Fprintln(os.Stderr, "ggml_cuda_init: no CUDA-capable device is detected")
			os.Exit(1)
		}
	case "gpu-missing":
		if !noGPU {
			fmt.Fprintln(os.Stderr, "whisper_backend_init_gpu: no GPU found")
		}
	}
	device := "gpu"
	if noGPU {
		device = "cpu"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/inference", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		f, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "no 'file' field in the request"})
			return
		}
		defer f.Close()
		audio, _ := io.ReadAll(f)
		if behavior == "slow" {
			time.Sleep(300 * time.Millisecond)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":     strings.TrimSpace(string(audio)),
			"language": r.FormValue("language"),
			"device":   device,
		})
	})

	ln, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
