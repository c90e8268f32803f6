package utils

import (
	"encoding/binary"
	"fmt"

	"github.com/near/borsh-go"
)

// EncodeEvent 将事件编码为带类型前缀的二进制数据：
// - 前 4 字节为事件类型（uint32，小端序）
// - 后续为 borsh 序列化的事件体
func EncodeEvent(eventType uint32, body any) ([]byte, error) {
	data, err := borsh.Serialize(body)
	if err != nil {
		return nil, fmt.Errorf("EncodeEvent: serialize %T: %w", body, err)
	}
	buf := make([]byte, 4, 4+len(data))
	binary.LittleEndian.PutUint32(buf, eventType)
	return append(buf, data...), nil
}

// DecodeEvent 拆出事件类型，并把事件体反序列化到 out（out 必须是指针）
func DecodeEvent(raw []byte, out any) (uint32, error) {
	if len(raw) < 4 {
		return 0, fmt.Errorf("DecodeEvent: message too short (%d bytes)", len(raw))
	}
	eventType := binary.LittleEndian.Uint32(raw[:4])
	if err := borsh.Deserialize(out, raw[4:]); err != nil {
		return eventType, fmt.Errorf("DecodeEvent: deserialize %T: %w", out, err)
	}
	return eventType, nil
}
