package idl

import (
	"encoding/json"
	"fmt"

	"idl-kit-sol/internal/consts"
)

// DetectGeneration 只读探测文档代际，不做完整解析。
// 判定顺序：metadata.spec == "0.1.0" → 当前代；spec 为其他非空值 → 版本错误；
// 顶层 version 与 name 同为字符串 → 旧代；否则结构不可识别。
func DetectGeneration(data []byte) (Generation, error) {
	var probe struct {
		Version  json.RawMessage `json:"version"`
		Name     json.RawMessage `json:"name"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return GenerationUnknown, fmt.Errorf("document is not a JSON object: %w", err)
	}

	// 旧代 metadata 为自由形态，解析失败时视为无 spec 标记
	if len(probe.Metadata) > 0 {
		var meta struct {
			Spec string `json:"spec"`
		}
		if err := json.Unmarshal(probe.Metadata, &meta); err == nil && meta.Spec != "" {
			if meta.Spec == consts.SpecV010 {
				return GenerationCurrent, nil
			}
			return GenerationUnknown, &VersionError{Spec: meta.Spec}
		}
	}

	if isJSONString(probe.Version) && isJSONString(probe.Name) {
		return GenerationLegacy, nil
	}
	return GenerationUnknown, ErrMalformed
}

func isJSONString(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '"'
}

// Parse 探测代际并解析为 Document。
// 解析失败时错误带有段路径（如 parse instructions[2] "mint": ...）。
func Parse(data []byte) (*Document, error) {
	gen, err := DetectGeneration(data)
	if err != nil {
		return nil, err
	}
	switch gen {
	case GenerationCurrent:
		cur, err := parseCurrent(data)
		if err != nil {
			return nil, err
		}
		return &Document{Generation: GenerationCurrent, Current: cur}, nil
	case GenerationLegacy:
		leg, err := parseLegacy(data)
		if err != nil {
			return nil, err
		}
		return &Document{Generation: GenerationLegacy, Legacy: leg}, nil
	}
	return nil, ErrMalformed
}

// decodeSection 逐条解析段内条目，失败时包装为带路径的 ParseError。
func decodeSection[T any](section string, items []json.RawMessage) ([]T, error) {
	if items == nil {
		return nil, nil
	}
	out := make([]T, len(items))
	for i, raw := range items {
		if err := json.Unmarshal(raw, &out[i]); err != nil {
			return nil, &ParseError{Section: section, Index: i, Name: itemName(raw), Err: err}
		}
	}
	return out, nil
}

// itemName 探测条目的 name 键用于错误定位，失败时返回空串。
func itemName(raw json.RawMessage) string {
	var probe struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(raw, &probe)
	return probe.Name
}

func parseCurrent(data []byte) (*Idl, error) {
	var raw struct {
		Address      string            `json:"address"`
		Metadata     Metadata          `json:"metadata"`
		Docs         []string          `json:"docs"`
		Instructions []json.RawMessage `json:"instructions"`
		Accounts     []json.RawMessage `json:"accounts"`
		Events       []json.RawMessage `json:"events"`
		Errors       []ErrorCode       `json:"errors"`
		Types        []json.RawMessage `json:"types"`
		Constants    []json.RawMessage `json:"constants"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	out := &Idl{
		Address:  raw.Address,
		Metadata: raw.Metadata,
		Docs:     raw.Docs,
		Errors:   raw.Errors,
	}

	var err error
	if out.Instructions, err = decodeSection[Instruction]("instructions", raw.Instructions); err != nil {
		return nil, err
	}
	if out.Accounts, err = decodeSection[Account]("accounts", raw.Accounts); err != nil {
		return nil, err
	}
	if out.Events, err = decodeSection[Event]("events", raw.Events); err != nil {
		return nil, err
	}
	if out.Types, err = decodeSection[TypeDef]("types", raw.Types); err != nil {
		return nil, err
	}
	if out.Constants, err = decodeSection[Constant]("constants", raw.Constants); err != nil {
		return nil, err
	}

	// 指令列表与指令内的 accounts/args 规格化为非 nil，保证序列化形态稳定
	if out.Instructions == nil {
		out.Instructions = []Instruction{}
	}
	for i := range out.Instructions {
		if out.Instructions[i].Accounts == nil {
			out.Instructions[i].Accounts = []InstructionAccount{}
		}
		if out.Instructions[i].Args == nil {
			out.Instructions[i].Args = []Field{}
		}
	}

	// 条目名是结构必需项，缺失即判为畸形文档
	for i := range out.Instructions {
		if err := requireName("instructions", i, out.Instructions[i].Name); err != nil {
			return nil, err
		}
	}
	for i := range out.Accounts {
		if err := requireName("accounts", i, out.Accounts[i].Name); err != nil {
			return nil, err
		}
	}
	for i := range out.Events {
		if err := requireName("events", i, out.Events[i].Name); err != nil {
			return nil, err
		}
	}
	for i := range out.Types {
		if err := requireName("types", i, out.Types[i].Name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// requireName 条目缺名时返回带路径的结构错误。
func requireName(section string, index int, name string) error {
	if name == "" {
		return &ParseError{Section: section, Index: index, Err: fmt.Errorf("entry is missing a name")}
	}
	return nil
}

func parseLegacy(data []byte) (*LegacyIdl, error) {
	var raw struct {
		Version      string            `json:"version"`
		Name         string            `json:"name"`
		Docs         []string          `json:"docs"`
		Constants    []json.RawMessage `json:"constants"`
		Instructions []json.RawMessage `json:"instructions"`
		State        json.RawMessage   `json:"state"`
		Accounts     []json.RawMessage `json:"accounts"`
		Types        []json.RawMessage `json:"types"`
		Events       []json.RawMessage `json:"events"`
		Errors       []ErrorCode       `json:"errors"`
		Metadata     json.RawMessage   `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	out := &LegacyIdl{
		Version:  raw.Version,
		Name:     raw.Name,
		Docs:     raw.Docs,
		State:    raw.State,
		Errors:   raw.Errors,
		Metadata: raw.Metadata,
	}

	var err error
	if out.Constants, err = decodeSection[LegacyConstant]("constants", raw.Constants); err != nil {
		return nil, err
	}
	if out.Instructions, err = decodeSection[LegacyInstruction]("instructions", raw.Instructions); err != nil {
		return nil, err
	}
	if out.Accounts, err = decodeSection[LegacyTypeDef]("accounts", raw.Accounts); err != nil {
		return nil, err
	}
	if out.Types, err = decodeSection[LegacyTypeDef]("types", raw.Types); err != nil {
		return nil, err
	}
	if out.Events, err = decodeSection[LegacyEvent]("events", raw.Events); err != nil {
		return nil, err
	}

	if out.Instructions == nil {
		out.Instructions = []LegacyInstruction{}
	}
	for i := range out.Instructions {
		if out.Instructions[i].Accounts == nil {
			out.Instructions[i].Accounts = []LegacyInstructionAccount{}
		}
		if out.Instructions[i].Args == nil {
			out.Instructions[i].Args = []LegacyField{}
		}
		if err := requireName("instructions", i, out.Instructions[i].Name); err != nil {
			return nil, err
		}
	}
	for i := range out.Accounts {
		if err := requireName("accounts", i, out.Accounts[i].Name); err != nil {
			return nil, err
		}
	}
	for i := range out.Types {
		if err := requireName("types", i, out.Types[i].Name); err != nil {
			return nil, err
		}
	}
	for i := range out.Events {
		if err := requireName("events", i, out.Events[i].Name); err != nil {
			return nil, err
		}
	}
	return out, nil
}
