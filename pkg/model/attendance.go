// Package model 定义排班引擎的核心数据模型
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AttendanceStatus 会诊出席决定
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
)

// AttendanceDecision 单个医生的出席决定
type AttendanceDecision struct {
	DoctorID string
	Status   AttendanceStatus
}

// AttendanceRecord 某次会诊的出席记录，保持录入顺序
// JSON 形式为 {"doctorId": "PRESENT", ...}，键顺序即录入顺序
type AttendanceRecord []AttendanceDecision

// Present 按录入顺序返回确认出席的医生
func (r AttendanceRecord) Present() []string {
	var ids []string
	for _, d := range r {
		if d.Status == AttendancePresent {
			ids = append(ids, d.DoctorID)
		}
	}
	return ids
}

// Status 返回医生的出席决定
func (r AttendanceRecord) Status(doctorID string) (AttendanceStatus, bool) {
	for _, d := range r {
		if d.DoctorID == doctorID {
			return d.Status, true
		}
	}
	return "", false
}

// Set 返回设置了医生决定的新记录，已存在则原位更新
func (r AttendanceRecord) Set(doctorID string, status AttendanceStatus) AttendanceRecord {
	next := make(AttendanceRecord, 0, len(r)+1)
	found := false
	for _, d := range r {
		if d.DoctorID == doctorID {
			d.Status = status
			found = true
		}
		next = append(next, d)
	}
	if !found {
		next = append(next, AttendanceDecision{DoctorID: doctorID, Status: status})
	}
	return next
}

// Without 返回移除某医生后的新记录
func (r AttendanceRecord) Without(doctorID string) AttendanceRecord {
	next := make(AttendanceRecord, 0, len(r))
	for _, d := range r {
		if d.DoctorID != doctorID {
			next = append(next, d)
		}
	}
	return next
}

// MarshalJSON 按录入顺序输出对象
func (r AttendanceRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d.DoctorID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.Status)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 逐个读取键以保留顺序，重复键取最后的值
func (r *AttendanceRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("出席记录应为对象，实际为 %v", tok)
	}

	record := AttendanceRecord{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("出席记录键无效: %v", keyTok)
		}
		var status AttendanceStatus
		if err := dec.Decode(&status); err != nil {
			return fmt.Errorf("医生 %s 的出席决定无效: %w", key, err)
		}
		record = record.Set(key, status)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = record
	return nil
}

// RcpAttendance 会诊出席 slotID -> 出席记录
type RcpAttendance map[string]AttendanceRecord
