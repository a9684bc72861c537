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

package model

import (
	"fmt"
	"sort"

	"media-inference/pkg/errors"
)

// Descriptor 模态描述，启动时构建，之后只读
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry 已启用模态的注册表
type Registry struct {
	byName map[string]Descriptor
}

// NewRegistry 创建注册表；重名时后者覆盖前者
func NewRegistry(descs ...Descriptor) *Registry {
	r := &Registry{byName: make(map[string]Descriptor, len(descs))}
	for _, d := range descs {
		r.byName[d.Name] = d
	}
	return r
}

// ListModalities 返回 name -> description
func (r *Registry) ListModalities() map[string]string {
	out := make(map[string]string, len(r.byName))
	for name, d := range r.byName {
		out[name] = d.Description
	}
	return out
}

// Descriptors 按名称排序
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup 按名称获取
func (r *Registry) Lookup(name string) (Descriptor, error) {
	d, ok := r.byName[name]
	if !ok {
		return Descriptor{}, errors.Wrap(errors.ErrNotFound, fmt.Sprintf("modality not registered: %s", name))
	}
	return d, nil
}
