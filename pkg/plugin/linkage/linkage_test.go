package linkage

import (
	"errors"
	"reflect"
	"testing"
)

func TestScanLinux(t *testing.T) {
	mockOutput := []byte(`
	linux-vdso.so.1 (0x00007ffc5d7dd000)
	libjvmstub.so => not found
	libc.so.6 => /lib/x86_64-linux-gnu/libc.so.6 (0x00007f0c2a367000)
	/lib64/ld-linux-x86-64.so.2 (0x00007f0c2a57e000)
	`)

	checker := &Checker{
		Executor: func(name string, args ...string) ([]byte, error) {
			if name != "ldd" {
				t.Errorf("expected ldd, got %s", name)
			}
			return mockOutput, nil
		},
		GOOS: "linux",
	}

	libs, err := checker.Libraries("libcoco_java.so")
	if err != nil {
		t.Fatalf("Libraries failed: %v", err)
	}

	expected := []Library{
		{Name: "libjvmstub.so"},
		{Name: "libc.so.6", Path: "/lib/x86_64-linux-gnu/libc.so.6", Found: true},
		{Name: "/lib64/ld-linux-x86-64.so.2", Path: "/lib64/ld-linux-x86-64.so.2", Found: true},
	}
	if !reflect.DeepEqual(libs, expected) {
		t.Errorf("Expected %v, got %v", expected, libs)
	}

	missing, err := checker.Missing("libcoco_java.so")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(missing, []string{"libjvmstub.so"}) {
		t.Errorf("Missing() = %v", missing)
	}
}

func TestScanMacOS(t *testing.T) {
	mockOutput := []byte(`/path/to/libcoco_java.dylib:
	/usr/lib/libSystem.B.dylib (compatibility version 1.0.0, current version 1311.100.3)
	@rpath/libfoo.dylib (compatibility version 0.0.0, current version 0.0.0)
	/opt/gone/libbar.dylib (compatibility version 0.0.0, current version 0.0.0)
	`)

	checker := &Checker{
		Executor: func(name string, args ...string) ([]byte, error) {
			return mockOutput, nil
		},
		Exists: func(path string) bool { return false },
		GOOS:   "darwin",
	}

	missing, err := checker.Missing("libcoco_java.dylib")
	if err != nil {
		t.Fatalf("Missing failed: %v", err)
	}
	if !reflect.DeepEqual(missing, []string{"/opt/gone/libbar.dylib"}) {
		t.Errorf("Missing() = %v", missing)
	}
}

func TestExecutorFailure(t *testing.T) {
	checker := &Checker{
		Executor: func(name string, args ...string) ([]byte, error) {
			return nil, errors.New("boom")
		},
		GOOS: "linux",
	}
	if _, err := checker.Libraries("x.so"); err == nil {
		t.Error("expected error")
	}
}

func TestUnsupportedPlatform(t *testing.T) {
	checker := &Checker{GOOS: "windows"}
	if _, err := checker.Libraries("coco_java.dll"); err == nil {
		t.Error("expected error")
	}
}
