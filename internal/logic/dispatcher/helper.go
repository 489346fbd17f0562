package dispatcher

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
	"jup-indexer-sol/internal/consts"
	"jup-indexer-sol/internal/logic/entity"
	"jup-indexer-sol/pkg/utils"
)

const batchVersion = 1

// buildBatchProto 批次结构：
//
//	{version, chainId, slot, blockTime, blockHash, source, rows: [{entity, id, fields: [[name, value], ...]}]}
//
// 字段以有序二元组列表表示，保证下游按固定顺序绑定。slot / blockTime 以字符串承载避免精度损失。
func buildBatchProto(changes *entity.Changes, rows []*entity.Row, source int32) *structpb.Struct {
	list := make([]*structpb.Value, 0, len(rows))
	for _, row := range rows {
		list = append(list, rowToProto(row))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"version":   structpb.NewNumberValue(batchVersion),
		"chainId":   structpb.NewNumberValue(float64(consts.ChainIDSolana)),
		"slot":      structpb.NewStringValue(utils.FormatUint64(changes.Slot)),
		"blockTime": structpb.NewStringValue(fmt.Sprintf("%d", changes.BlockTime)),
		"blockHash": structpb.NewStringValue(changes.BlockHash.String()),
		"source":    structpb.NewNumberValue(float64(source)),
		"rows":      structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}
}

func rowToProto(row *entity.Row) *structpb.Value {
	fields := make([]*structpb.Value, 0, len(row.Fields))
	for _, f := range row.Fields {
		fields = append(fields, structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{
			structpb.NewStringValue(f.Name),
			structpb.NewStringValue(f.Value),
		}}))
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"entity": structpb.NewStringValue(string(row.Entity)),
		"id":     structpb.NewStringValue(row.ID),
		"fields": structpb.NewListValue(&structpb.ListValue{Values: fields}),
	}})
}

// DecodeEntityBatch 解码 BuildEntityKafkaJobs 产出的消息，返回 slot 与实体行（不含分区键）
func DecodeEntityBatch(data []byte) (uint64, []*entity.Row, error) {
	var batch structpb.Struct
	eventType, err := utils.DecodeEvent(data, &batch)
	if err != nil {
		return 0, nil, err
	}
	if eventType != EventTypeEntityBatch {
		return 0, nil, fmt.Errorf("unexpected event type %d", eventType)
	}

	slot := utils.ParseUint64(batch.Fields["slot"].GetStringValue())
	var rows []*entity.Row
	for _, v := range batch.Fields["rows"].GetListValue().GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return 0, nil, fmt.Errorf("slot %d: row is not a struct", slot)
		}
		row := &entity.Row{
			Entity: entity.Type(s.Fields["entity"].GetStringValue()),
			ID:     s.Fields["id"].GetStringValue(),
		}
		for _, pair := range s.Fields["fields"].GetListValue().GetValues() {
			kv := pair.GetListValue().GetValues()
			if len(kv) != 2 {
				return 0, nil, fmt.Errorf("slot %d: row %s has malformed field", slot, row.ID)
			}
			row.Set(kv[0].GetStringValue(), kv[1].GetStringValue())
		}
		rows = append(rows, row)
	}
	return slot, rows, nil
}
