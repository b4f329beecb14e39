// Copyright 2025 Kadir Pekel
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

package provider

import (
	"fmt"

	"github.com/kadirpekel/crow/internal/registry"
)

// Registry composes multiple named Client instances, generalizing the
// teacher's single-provider LLMRegistry to crow's dual primary/coagent
// model where each side may use a different provider/model.
type Registry struct {
	reg *registry.BaseRegistry[Client]
}

func NewRegistry() *Registry {
	return &Registry{reg: registry.NewBaseRegistry[Client]()}
}

func (r *Registry) Register(name string, c Client) error {
	if c == nil {
		return fmt.Errorf("provider: client for %q cannot be nil", name)
	}
	return r.reg.Register(name, c)
}

func (r *Registry) Get(name string) (Client, bool) {
	return r.reg.Get(name)
}
