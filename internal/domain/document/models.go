package document

import (
	"encoding/json"
	"fmt"
	"time"
)

// 常用元数据键
const (
	MetaKeyCreatedAt   = "created_at"
	MetaKeyUpdatedAt   = "updated_at"
	MetaKeyContentType = "content_type"
	MetaKeyFileType    = "file_type"
	MetaKeyFileName    = "file_name"
	MetaKeyFileHash    = "file_hash"
	MetaKeyIsBinary    = "is_binary"
	MetaKeySourcePath  = "source_path"
	MetaKeyClientID    = "client_id"
)

// ValueKind 元数据值类型标签
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindJSON
)

// MetaValue 元数据值
// 显式标签联合类型，序列化时保留原始 JSON 类型，
// 反序列化时按 JSON 类型还原标签，保证往返不丢失类型信息
type MetaValue struct {
	Kind ValueKind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
	Raw  json.RawMessage // KindJSON：对象/数组原文
}

// String 创建字符串值
func String(s string) MetaValue { return MetaValue{Kind: KindString, Str: s} }

// Int 创建整数值
func Int(i int64) MetaValue { return MetaValue{Kind: KindInt, Int: i} }

// Float 创建浮点值
func Float(f float64) MetaValue { return MetaValue{Kind: KindFloat, Flt: f} }

// Bool 创建布尔值
func Bool(b bool) MetaValue { return MetaValue{Kind: KindBool, Bool: b} }

// JSONValue 创建 JSON 复合值
func JSONValue(raw json.RawMessage) MetaValue { return MetaValue{Kind: KindJSON, Raw: raw} }

// MarshalJSON 实现 json.Marshaler
func (v MetaValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Flt)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindJSON:
		if len(v.Raw) == 0 {
			return []byte("null"), nil
		}
		return v.Raw, nil
	default:
		return nil, fmt.Errorf("unknown meta value kind: %d", v.Kind)
	}
}

// UnmarshalJSON 实现 json.Unmarshaler
// 按 JSON 原生类型推断标签：字符串/布尔/数字（整数优先）/复合
func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = String(s)
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Bool(b)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		if i, err := num.Int64(); err == nil {
			*v = Int(i)
			return nil
		}
		f, err := num.Float64()
		if err != nil {
			return fmt.Errorf("invalid number in metadata: %w", err)
		}
		*v = Float(f)
		return nil
	}

	// 对象/数组/null 按原文保留
	*v = JSONValue(append(json.RawMessage(nil), data...))
	return nil
}

// AsString 以字符串形式返回值
func (v MetaValue) AsString() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Flt)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindJSON:
		return string(v.Raw)
	default:
		return ""
	}
}

// AsBool 以布尔形式返回值，非布尔类型返回 false
func (v MetaValue) AsBool() bool {
	return v.Kind == KindBool && v.Bool
}

// Metadata 文档元数据
// 开放的键值映射，值为显式标签联合类型
type Metadata map[string]MetaValue

// NewMetadata 创建空元数据
func NewMetadata() Metadata {
	return make(Metadata)
}

// GetString 读取字符串值，不存在时返回空字符串
func (m Metadata) GetString(key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return v.AsString()
}

// GetBool 读取布尔值，不存在或类型不符时返回 false
func (m Metadata) GetBool(key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	return v.AsBool()
}

// SetString 写入字符串值
func (m Metadata) SetString(key, value string) {
	m[key] = String(value)
}

// Merge 合并另一份元数据，右侧覆盖同名键，返回新映射
func (m Metadata) Merge(other Metadata) Metadata {
	merged := make(Metadata, len(m)+len(other))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Clone 浅拷贝
func (m Metadata) Clone() Metadata {
	return Metadata{}.Merge(m)
}

// Document 文档模型
// 关系库记录是文档存在性的权威来源，向量库记录是它的投影
type Document struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// NewDocument 创建文档，补全 created_at
func NewDocument(id, content string, metadata Metadata) *Document {
	if metadata == nil {
		metadata = NewMetadata()
	}
	if _, ok := metadata[MetaKeyCreatedAt]; !ok {
		metadata.SetString(MetaKeyCreatedAt, time.Now().Format(time.RFC3339))
	}
	return &Document{
		ID:       id,
		Content:  content,
		Metadata: metadata,
	}
}

// Touch 更新 updated_at
func (d *Document) Touch() {
	d.Metadata.SetString(MetaKeyUpdatedAt, time.Now().Format(time.RFC3339))
}

// CreatedAt 解析 created_at，解析失败返回零值
func (d *Document) CreatedAt() time.Time {
	t, err := time.Parse(time.RFC3339, d.Metadata.GetString(MetaKeyCreatedAt))
	if err != nil {
		return time.Time{}
	}
	return t
}
