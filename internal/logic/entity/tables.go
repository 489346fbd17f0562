package entity

import (
	"errors"
	"fmt"
)

// ErrDuplicateRow 同一区块内重复创建同一实体 id，属于调用方错误
var ErrDuplicateRow = errors.New("duplicate entity row")

// Type 实体类型，与下游消费方绑定的表名一致
type Type string

const (
	TypeSwap  Type = "Swap"
	TypePool  Type = "Pool"
	TypeToken Type = "Token"
	TypeRoute Type = "Route"
)

// Field 实体字段，值统一为字符串（金额为十进制整数字符串）
type Field struct {
	Name  string
	Value string
}

// Row 一个实体的一行数据，字段顺序固定
type Row struct {
	Entity Type
	ID     string
	Key    []byte // 分区键，同一交易的 swap 落在同一分区
	Fields []Field
}

// Set 追加字段，保持调用顺序
func (r *Row) Set(name, value string) *Row {
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
	return r
}

// Get 按字段名取值
func (r *Row) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

type rowKey struct {
	entity Type
	id     string
}

// Tables 单个区块的实体变更集合
type Tables struct {
	rows []*Row
	seen map[rowKey]struct{}
}

func NewTables() *Tables {
	return &Tables{seen: make(map[rowKey]struct{})}
}

// CreateRow 创建实体行，同一区块内 (entity, id) 只能创建一次
func (t *Tables) CreateRow(entity Type, id string) (*Row, error) {
	key := rowKey{entity: entity, id: id}
	if _, ok := t.seen[key]; ok {
		return nil, fmt.Errorf("%w: %s %s", ErrDuplicateRow, entity, id)
	}
	t.seen[key] = struct{}{}

	row := &Row{Entity: entity, ID: id}
	t.rows = append(t.rows, row)
	return row, nil
}

// Rows 按创建顺序返回
func (t *Tables) Rows() []*Row {
	return t.rows
}

func (t *Tables) Len() int {
	return len(t.rows)
}
