// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// ErrRejectedMediaType 上传声明的内容类型与端点要求不符
var ErrRejectedMediaType = errors.New("rejected media type")

// RejectedError 携带期望类型，Error() 即返回给客户端的 detail
type RejectedError struct {
	Declared string
	Expected string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("Invalid object type, expected '%s'", e.Expected)
}

func (e *RejectedError) Unwrap() error { return ErrRejectedMediaType }

// Validate 校验声明的内容类型（精确、区分大小写），通过时原样返回 payload
func Validate(declared, expected string, payload []byte) ([]byte, error) {
	if declared != expected {
		return nil, &RejectedError{Declared: declared, Expected: expected}
	}
	return payload, nil
}

// DeclaredType 返回 multipart part 头中的 Content-Type
func DeclaredType(fh *multipart.FileHeader) string {
	if fh == nil {
		return ""
	}
	return fh.Header.Get("Content-Type")
}

// ReadUpload 校验 part 的声明类型后把内容整体读入内存
func ReadUpload(fh *multipart.FileHeader, expected string) ([]byte, error) {
	if fh == nil {
		return nil, fmt.Errorf("no file uploaded")
	}
	if _, err := Validate(DeclaredType(fh), expected, nil); err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return payload, nil
}
