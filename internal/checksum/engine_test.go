package checksum

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/bft-labs/ipcheck/internal/domain"
)

func memFile(name string, data []byte) domain.SelectedFile {
	return domain.SelectedFile{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func TestComputeKnownDigests(t *testing.T) {
	tests := []struct {
		alg  domain.Algorithm
		want string
	}{
		{domain.AlgorithmMD5, "900150983cd24fb0d6963f7d28e17f72"},
		{domain.AlgorithmSHA1, "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{domain.AlgorithmSHA256, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}

	for _, tt := range tests {
		t.Run(string(tt.alg), func(t *testing.T) {
			e, err := New(tt.alg, 0)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			res := e.Compute(context.Background(), memFile("abc.txt", []byte("abc")))
			if res.Err != nil {
				t.Fatalf("Compute() error = %v", res.Err)
			}
			if res.Digest.String() != tt.want {
				t.Errorf("Digest = %s, want %s", res.Digest, tt.want)
			}
			if res.Size != 3 {
				t.Errorf("Size = %d, want 3", res.Size)
			}
		})
	}
}

func TestComputeMatchesSum(t *testing.T) {
	data := bytes.Repeat([]byte("information package "), 10000)

	for _, alg := range domain.Algorithms {
		t.Run(string(alg), func(t *testing.T) {
			// a small chunk size forces many reads
			e, err := New(alg, 7)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			res := e.Compute(context.Background(), memFile("big.bin", data))
			if res.Err != nil {
				t.Fatalf("Compute() error = %v", res.Err)
			}
			want, err := Sum(alg, data)
			if err != nil {
				t.Fatalf("Sum() error = %v", err)
			}
			if res.Digest != want {
				t.Errorf("chunked digest %s != one-shot %s", res.Digest, want)
			}
			if res.Digest.String() != strings.ToLower(res.Digest.String()) {
				t.Errorf("digest is not lowercase: %s", res.Digest)
			}
		})
	}
}

func TestComputeIgnoresName(t *testing.T) {
	e, _ := New(domain.AlgorithmSHA1, 0)
	data := []byte("same bytes")
	a := e.Compute(context.Background(), memFile("a.zip", data))
	b := e.Compute(context.Background(), memFile("renamed.tar", data))
	if a.Err != nil || b.Err != nil {
		t.Fatalf("Compute() errors = %v, %v", a.Err, b.Err)
	}
	if a.Digest != b.Digest {
		t.Errorf("digests differ for identical content: %s vs %s", a.Digest, b.Digest)
	}
}

func TestComputeEmptyFile(t *testing.T) {
	e, _ := New(domain.AlgorithmSHA1, 0)
	res := e.Compute(context.Background(), memFile("empty", nil))
	if res.Err != nil {
		t.Fatalf("Compute() error = %v", res.Err)
	}
	if res.Digest != "da39a3ee5e6b4b0d3255bfef95601890afd80709" {
		t.Errorf("Digest = %s", res.Digest)
	}
}

type failingReader struct{ after int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, errors.New("device gone")
	}
	n := min(len(p), f.after)
	f.after -= n
	return n, nil
}

func TestComputeReadFailure(t *testing.T) {
	e, _ := New(domain.AlgorithmSHA1, 4)
	file := domain.SelectedFile{
		Name: "broken.zip",
		Size: -1,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(&failingReader{after: 10}), nil },
	}
	res := e.Compute(context.Background(), file)
	if !errors.Is(res.Err, domain.ErrRead) {
		t.Fatalf("Compute() error = %v, want ErrRead", res.Err)
	}
	if !res.Digest.Empty() {
		t.Errorf("Digest = %s, want empty on failure", res.Digest)
	}
}

func TestComputeOpenFailure(t *testing.T) {
	e, _ := New(domain.AlgorithmSHA1, 0)
	file := domain.SelectedFile{
		Name: "gone.zip",
		Size: -1,
		Open: func() (io.ReadCloser, error) { return nil, errors.New("permission denied") },
	}
	if res := e.Compute(context.Background(), file); !errors.Is(res.Err, domain.ErrRead) {
		t.Errorf("Compute() error = %v, want ErrRead", res.Err)
	}
}

func TestComputeShortRead(t *testing.T) {
	e, _ := New(domain.AlgorithmSHA1, 0)
	file := memFile("short.zip", []byte("abc"))
	file.Size = 10
	if res := e.Compute(context.Background(), file); !errors.Is(res.Err, domain.ErrRead) {
		t.Errorf("Compute() error = %v, want ErrRead", res.Err)
	}
}

func TestComputeUnknownSize(t *testing.T) {
	e, _ := New(domain.AlgorithmSHA1, 0)
	for _, size := range []int64{0, -1} {
		file := domain.SelectedFile{
			Name: "f",
			Size: size,
			Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("abc")), nil },
		}
		res := e.Compute(context.Background(), file)
		if res.Err != nil {
			t.Fatalf("Compute() with Size %d error = %v", size, res.Err)
		}
		if res.Digest != "a9993e364706816aba3e25717850c26c9cd0d89d" || res.Size != 3 {
			t.Errorf("Compute() with Size %d = %s/%d", size, res.Digest, res.Size)
		}
	}
}

func TestComputeCanceled(t *testing.T) {
	e, _ := New(domain.AlgorithmSHA1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := e.Compute(ctx, memFile("p.zip", []byte("abc")))
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Compute() error = %v, want context.Canceled", res.Err)
	}
}

func TestComputeNoSelection(t *testing.T) {
	e, _ := New(domain.AlgorithmSHA1, 0)
	if res := e.Compute(context.Background(), domain.SelectedFile{}); !errors.Is(res.Err, domain.ErrNoSelection) {
		t.Errorf("Compute() error = %v, want ErrNoSelection", res.Err)
	}
}

func TestStartDeliversOneResult(t *testing.T) {
	e, _ := New(domain.AlgorithmSHA1, 0)
	ch := e.Start(context.Background(), memFile("abc", []byte("abc")))

	res, ok := <-ch
	if !ok {
		t.Fatal("channel closed without a result")
	}
	if res.Digest != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("Digest = %s", res.Digest)
	}
	if _, ok := <-ch; ok {
		t.Error("channel delivered more than one result")
	}
}

func TestSniffedMIME(t *testing.T) {
	e, _ := New(domain.AlgorithmSHA1, 2)
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write(bytes.Repeat([]byte("payload"), 100))
	zw.Close()

	res := e.Compute(context.Background(), memFile("p.tar.gz", gz.Bytes()))
	if res.Err != nil {
		t.Fatalf("Compute() error = %v", res.Err)
	}
	if !IsArchive(res.MIME) {
		t.Errorf("MIME = %s, want an archive type", res.MIME)
	}

	res = e.Compute(context.Background(), memFile("notes.txt", []byte("plain text")))
	if IsArchive(res.MIME) {
		t.Errorf("MIME = %s, want non-archive for text", res.MIME)
	}
}

func TestNewUnknownAlgorithm(t *testing.T) {
	if _, err := New("crc32", 0); err == nil {
		t.Error("New(crc32) expected error")
	}
}
