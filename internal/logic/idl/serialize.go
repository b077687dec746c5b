package idl

import (
	"encoding/json"
	"fmt"
)

// Serialize 将文档序列化为两空格缩进的稳定 JSON。
// 键顺序由结构体字段顺序决定，同一文档重复序列化逐字节一致。
func (d *Document) Serialize() ([]byte, error) {
	switch d.Generation {
	case GenerationCurrent:
		return marshalStable(d.Current)
	case GenerationLegacy:
		return marshalStable(d.Legacy)
	}
	return nil, fmt.Errorf("cannot serialize document with generation %q", d.Generation)
}

func marshalStable(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	return append(data, '\n'), nil
}
