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

package vision

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"media-inference/pkg/errors"
)

// LabelTable 类别下标到名称
type LabelTable []string

// LoadLabels 读取每行一个类别名的文件（如 imagenet_classes.txt）
func LoadLabels(path string) (LabelTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels file: %w", err)
	}
	defer f.Close()

	var labels LabelTable
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels file: %w", err)
	}
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

// GenericLabels 未配置标签文件时使用 class_0..class_{n-1}
func GenericLabels(n int) LabelTable {
	labels := make(LabelTable, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("class_%d", i)
	}
	return labels
}

// Lookup 越界返回错误
func (t LabelTable) Lookup(idx int) (string, error) {
	if idx < 0 || idx >= len(t) {
		return "", errors.Wrapf(errors.ErrInvalidArg, "class index %d out of range for %d labels", idx, len(t))
	}
	return t[idx], nil
}

// Argmax 返回最大值下标，空切片返回 -1
func Argmax(values []float32) int {
	best := -1
	for i, v := range values {
		if best < 0 || v > values[best] {
			best = i
		}
	}
	return best
}
