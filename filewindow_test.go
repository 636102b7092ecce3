package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// patternBytes 每个字节的值由偏移决定，方便校验
func patternBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func openTestWindow(t *testing.T, data []byte) (*FileWindow, string) {
	t.Helper()
	path := writeTemp(t, data)
	fw, err := OpenFileWindow(path)
	if err != nil {
		t.Fatalf("OpenFileWindow: %v", err)
	}
	t.Cleanup(fw.Close)
	return fw, path
}

// ---------------------------------------------------------------------------
// Open
// ---------------------------------------------------------------------------

func TestOpenFileWindowMissingFile(t *testing.T) {
	_, err := OpenFileWindow(filepath.Join(t.TempDir(), "nope.bin"))
	var fae *FileAccessError
	if !errors.As(err, &fae) {
		t.Fatalf("err = %v, want *FileAccessError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err should wrap os.ErrNotExist, got %v", err)
	}
}

func TestOpenFileWindowDirectory(t *testing.T) {
	_, err := OpenFileWindow(t.TempDir())
	var fae *FileAccessError
	if !errors.As(err, &fae) {
		t.Fatalf("err = %v, want *FileAccessError", err)
	}
}

func TestOpenFileWindowLoadsFirstChunks(t *testing.T) {
	fw, _ := openTestWindow(t, patternBytes(5000))
	if fw.Size() != 5000 {
		t.Errorf("Size = %d, want 5000", fw.Size())
	}
	if fw.Offset() != 0 {
		t.Errorf("Offset = %d, want 0", fw.Offset())
	}
	// 第 0 块没有前一块：加载第 0、1 块
	if got, want := fw.Len(), 2*defaultChunkSize; got != want {
		t.Errorf("Len = %d, want %d", got, want)
	}
}

func TestOpenFileWindowSmallerThanChunk(t *testing.T) {
	fw, _ := openTestWindow(t, patternBytes(10))
	if fw.Offset() != 0 || fw.Len() != 10 {
		t.Errorf("window = [%d,+%d), want [0,+10)", fw.Offset(), fw.Len())
	}
}

func TestOpenFileWindowEmptyFile(t *testing.T) {
	fw, _ := openTestWindow(t, nil)
	if fw.Size() != 0 || fw.Len() != 0 {
		t.Errorf("size=%d len=%d, want 0/0", fw.Size(), fw.Len())
	}
	if err := fw.EnsureResident(0); err != nil {
		t.Errorf("EnsureResident(0) on empty file: %v", err)
	}
	if _, err := fw.ByteAt(0); !errors.Is(err, ErrNotResident) {
		t.Errorf("ByteAt(0) err = %v, want ErrNotResident", err)
	}
}

// ---------------------------------------------------------------------------
// EnsureResident / ByteAt
// ---------------------------------------------------------------------------

func TestEnsureResidentLoadsThreeChunks(t *testing.T) {
	fw, _ := openTestWindow(t, patternBytes(5000))
	fw.SetChunkSize(100)

	if err := fw.EnsureResident(4500); err != nil {
		t.Fatalf("EnsureResident: %v", err)
	}
	if fw.Offset() != 4400 {
		t.Errorf("Offset = %d, want 4400", fw.Offset())
	}
	if fw.Len() != 300 {
		t.Errorf("Len = %d, want 300", fw.Len())
	}
	b, err := fw.ByteAt(4500)
	if err != nil {
		t.Fatalf("ByteAt: %v", err)
	}
	if b != byte(4500%251) {
		t.Errorf("ByteAt(4500) = %d, want %d", b, 4500%251)
	}
}

func TestEnsureResidentClampsAtEOF(t *testing.T) {
	fw, _ := openTestWindow(t, patternBytes(5000))
	fw.SetChunkSize(1000)

	if err := fw.EnsureResident(4999); err != nil {
		t.Fatalf("EnsureResident: %v", err)
	}
	if fw.Offset() != 3000 || fw.Len() != 2000 {
		t.Errorf("window = [%d,+%d), want [3000,+2000)", fw.Offset(), fw.Len())
	}
}

func TestEnsureResidentNoReloadWhenResident(t *testing.T) {
	fw, _ := openTestWindow(t, patternBytes(5000))
	fw.SetChunkSize(100)
	// 仍在初始窗口 [0, 2048) 内，不应重新加载
	if err := fw.EnsureResident(1500); err != nil {
		t.Fatal(err)
	}
	if fw.Offset() != 0 || fw.Len() != 2*defaultChunkSize {
		t.Errorf("window changed to [%d,+%d)", fw.Offset(), fw.Len())
	}
}

func TestEnsureResidentOutOfRangeIsNoop(t *testing.T) {
	fw, _ := openTestWindow(t, patternBytes(100))
	for _, off := range []int64{-1, 100, 1 << 40} {
		if err := fw.EnsureResident(off); err != nil {
			t.Errorf("EnsureResident(%d) = %v", off, err)
		}
	}
	if fw.Offset() != 0 || fw.Len() != 100 {
		t.Errorf("window = [%d,+%d), want [0,+100)", fw.Offset(), fw.Len())
	}
}

func TestByteAtNotResident(t *testing.T) {
	fw, _ := openTestWindow(t, patternBytes(5000))
	if _, err := fw.ByteAt(4000); !errors.Is(err, ErrNotResident) {
		t.Errorf("err = %v, want ErrNotResident", err)
	}
	if fw.Resident(4000) {
		t.Error("Resident(4000) should be false")
	}
}

func TestEnsureResidentThenByteAtRoundTrip(t *testing.T) {
	const size = 3000
	fw, _ := openTestWindow(t, patternBytes(size))

	for _, chunk := range []int64{1, 3, 64, 1000, 8192} {
		fw.SetChunkSize(chunk)
		if err := fw.ReloadForced(); err != nil {
			t.Fatal(err)
		}
		for off := int64(size - 1); off >= 0; off -= 37 {
			if err := fw.EnsureResident(off); err != nil {
				t.Fatalf("chunk=%d EnsureResident(%d): %v", chunk, off, err)
			}
			b, err := fw.ByteAt(off)
			if err != nil {
				t.Fatalf("chunk=%d ByteAt(%d): %v", chunk, off, err)
			}
			if b != byte(off%251) {
				t.Fatalf("chunk=%d ByteAt(%d) = %d, want %d", chunk, off, b, off%251)
			}
			if fw.Offset()%fw.ChunkSize() != 0 {
				t.Fatalf("chunk=%d offset %d not chunk aligned", chunk, fw.Offset())
			}
			if fw.Len() > 3*chunk {
				t.Fatalf("chunk=%d resident length %d exceeds three chunks", chunk, fw.Len())
			}
			if fw.Offset()+fw.Len() > size {
				t.Fatalf("chunk=%d window [%d,+%d) past EOF", chunk, fw.Offset(), fw.Len())
			}
		}
	}
}

func TestSetChunkSizeFloorsAtOne(t *testing.T) {
	fw, _ := openTestWindow(t, patternBytes(10))
	fw.SetChunkSize(0)
	if fw.ChunkSize() != 1 {
		t.Errorf("ChunkSize = %d, want 1", fw.ChunkSize())
	}
}

// ---------------------------------------------------------------------------
// Reload
// ---------------------------------------------------------------------------

func TestShortReadAfterTruncate(t *testing.T) {
	fw, path := openTestWindow(t, patternBytes(5000))
	fw.SetChunkSize(100)
	if err := os.Truncate(path, 150); err != nil {
		t.Fatal(err)
	}

	// 大小仍是旧值 5000，读取越过新的文件末尾
	if err := fw.EnsureResident(2500); err != nil {
		t.Fatalf("short read should not be an error: %v", err)
	}
	if fw.Len() != 0 {
		t.Errorf("Len = %d, want 0 after truncation", fw.Len())
	}
	if _, err := fw.ByteAt(2500); !errors.Is(err, ErrNotResident) {
		t.Errorf("ByteAt err = %v, want ErrNotResident", err)
	}
}

func TestReloadForcedRefreshesSizeAndContent(t *testing.T) {
	fw, path := openTestWindow(t, patternBytes(100))
	if err := os.WriteFile(path, []byte{0xAA, 0xBB, 0xCC}, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fw.ReloadForced(); err != nil {
		t.Fatalf("ReloadForced: %v", err)
	}
	if fw.Size() != 3 {
		t.Errorf("Size = %d, want 3", fw.Size())
	}
	b, err := fw.ByteAt(1)
	if err != nil || b != 0xBB {
		t.Errorf("ByteAt(1) = %#x, %v; want 0xbb", b, err)
	}
}

func TestReloadForcedAppliesChunkSize(t *testing.T) {
	fw, _ := openTestWindow(t, patternBytes(5000))
	fw.SetChunkSize(16)
	if err := fw.ReloadForced(); err != nil {
		t.Fatal(err)
	}
	if fw.Offset() != 0 || fw.Len() != 32 {
		t.Errorf("window = [%d,+%d), want [0,+32)", fw.Offset(), fw.Len())
	}
}

func TestReloadForcedAfterShrinkBelowAnchor(t *testing.T) {
	fw, path := openTestWindow(t, patternBytes(5000))
	fw.SetChunkSize(100)
	if err := fw.EnsureResident(4900); err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(path, 50); err != nil {
		t.Fatal(err)
	}
	if err := fw.ReloadForced(); err != nil {
		t.Fatalf("ReloadForced: %v", err)
	}
	if fw.Size() != 50 {
		t.Errorf("Size = %d, want 50", fw.Size())
	}
	if !fw.Resident(49) {
		t.Errorf("last byte should be resident, window [%d,+%d)", fw.Offset(), fw.Len())
	}
}

func TestCloseStopsLoading(t *testing.T) {
	fw, _ := openTestWindow(t, patternBytes(5000))
	fw.Close()
	if err := fw.EnsureResident(4000); err != nil {
		t.Errorf("EnsureResident after Close: %v", err)
	}
	if err := fw.ReloadForced(); err != nil {
		t.Errorf("ReloadForced after Close: %v", err)
	}
	if fw.Len() != 0 {
		t.Errorf("Len = %d after Close, want 0", fw.Len())
	}
}

// ---------------------------------------------------------------------------
// EnsureRange / Peek
// ---------------------------------------------------------------------------

func TestEnsureRangeLoadsAroundMiddle(t *testing.T) {
	fw, _ := openTestWindow(t, patternBytes(5000))
	fw.SetChunkSize(100)

	if err := fw.EnsureRange(4450, 4550); err != nil {
		t.Fatal(err)
	}
	if !fw.Resident(4450) || !fw.Resident(4549) {
		t.Errorf("window [%d,+%d) does not cover [4450, 4550)", fw.Offset(), fw.Len())
	}
	loads := fw.loadCount()
	if err := fw.EnsureRange(4460, 4540); err != nil {
		t.Fatal(err)
	}
	if fw.loadCount() != loads {
		t.Error("resident range reloaded")
	}
	// 裁剪到文件末尾
	if err := fw.EnsureRange(4990, 6000); err != nil {
		t.Fatal(err)
	}
	if !fw.Resident(4999) {
		t.Errorf("last byte not resident, window [%d,+%d)", fw.Offset(), fw.Len())
	}
}

func TestPeekDoesNotMoveWindow(t *testing.T) {
	fw, _ := openTestWindow(t, patternBytes(5000))
	loads := fw.loadCount()

	b, err := fw.Peek(4000, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 8 || b[0] != byte(4000%251) || b[7] != byte(4007%251) {
		t.Errorf("Peek(4000) = % x", b)
	}
	if fw.Offset() != 0 || fw.loadCount() != loads {
		t.Errorf("Peek moved the window to [%d,+%d)", fw.Offset(), fw.Len())
	}

	b, _ = fw.Peek(10, 4)
	if len(b) != 4 || b[0] != 10 {
		t.Errorf("Peek(10) = % x", b)
	}
}

func TestPeekBounds(t *testing.T) {
	fw, path := openTestWindow(t, patternBytes(5000))
	if b, _ := fw.Peek(4996, 8); len(b) != 4 {
		t.Errorf("Peek at EOF len = %d, want 4", len(b))
	}
	if _, err := fw.Peek(5000, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("err = %v, want ErrOutOfBounds", err)
	}

	// 大小未刷新时文件已被截断：短结果，不是错误
	if err := os.Truncate(path, 4000); err != nil {
		t.Fatal(err)
	}
	b, err := fw.Peek(4500, 8)
	if err != nil || len(b) != 0 {
		t.Errorf("Peek past truncation = % x, %v", b, err)
	}
}
