package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-enry/go-enry/v2"
)

// filetype.go - 用文件名和首块内容识别文件类型（文件栏显示）

// sniffLen 识别时最多检查的字节数
const sniffLen = 8 << 10

type fileType struct {
	Language string
	MIME     string
	Binary   bool
}

func (t fileType) String() string {
	kind := "text"
	if t.Binary {
		kind = "binary"
	}
	if t.Language == "" {
		return fmt.Sprintf("%s · %s", kind, t.MIME)
	}
	return fmt.Sprintf("%s · %s · %s", t.Language, kind, t.MIME)
}

// detectFileType content 为文件开头（可能不完整）
func detectFileType(path string, content []byte) fileType {
	if len(content) > sniffLen {
		content = content[:sniffLen]
	}
	ft := fileType{Binary: enry.IsBinary(content)}
	if !ft.Binary {
		ft.Language = enry.GetLanguage(filepath.Base(path), content)
	}
	ft.MIME = enry.GetMIMEType(path, ft.Language)
	return ft
}

// sniffFile 直接读取文件开头，不扰动驻留窗口
func sniffFile(path string) fileType {
	f, err := os.Open(path)
	if err != nil {
		return detectFileType(path, nil)
	}
	defer f.Close()
	head, _ := io.ReadAll(io.LimitReader(f, sniffLen))
	return detectFileType(path, head)
}
