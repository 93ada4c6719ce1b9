package vad

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ResolveORTLibrary returns the path to the ONNX Runtime shared library.
// Search order:
//  1. configured (vad.ort_library_path)
//  2. CAPGATE_ORT_LIB_PATH
//  3. lib/<goos>-<goarch>/ relative to the executable
//  4. ../lib/<goos>-<goarch>/ relative to the executable (bin/ layout)
func ResolveORTLibrary(configured string) (string, error) {
	for _, candidate := range []struct{ label, path string }{
		{"vad.ort_library_path", configured},
		{"CAPGATE_ORT_LIB_PATH", os.Getenv("CAPGATE_ORT_LIB_PATH")},
	} {
		if candidate.path == "" {
			continue
		}
		info, err := os.Stat(candidate.path)
		if err != nil {
			return "", fmt.Errorf("ort: %s=%q does not exist", candidate.label, candidate.path)
		}
		if info.IsDir() {
			return "", fmt.Errorf("ort: %s=%q is a directory, expected a file", candidate.label, candidate.path)
		}
		return candidate.path, nil
	}

	filename := ortLibFilename()
	libRel := filepath.Join("lib", runtime.GOOS+"-"+runtime.GOARCH, filename)
	libRelParent := filepath.Join("..", "lib", runtime.GOOS+"-"+runtime.GOARCH, filename)

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		for _, rel := range []string{libRel, libRelParent} {
			path := filepath.Join(exeDir, rel)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", fmt.Errorf("ort: shared library not found; searched lib/<os>-<arch>/%s relative to executable (set vad.ort_library_path or CAPGATE_ORT_LIB_PATH)", filename)
}

// ortLibFilename returns the platform-specific ONNX Runtime library filename.
func ortLibFilename() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}
