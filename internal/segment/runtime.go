package segment

import (
	"fmt"
	"log"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
)

// InitRuntime loads the ONNX Runtime shared library. Must be called once before any session is created.
func InitRuntime(libPath string) error {
	if libPath == "" {
		libPath = DefaultLibPath()
	}
	if libPath == "" {
		return fmt.Errorf("ONNX Runtime library path could not be determined for %s", runtime.GOOS)
	}

	log.Printf("Using ONNX Runtime library %q", libPath)
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime environment: %w", err)
	}
	return nil
}

func DestroyRuntime() {
	if !ort.IsInitialized() {
		return
	}
	if err := ort.DestroyEnvironment(); err != nil {
		log.Println("Failed to destroy ONNX Runtime environment:", err)
	}
}

func DefaultLibPath() string {
	switch runtime.GOOS {
	case "linux":
		return "/usr/local/lib/libonnxruntime.so"
	case "darwin":
		return "/usr/local/lib/libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return ""
	}
}
