package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/radioplan/radioplan/pkg/errors"
	"github.com/radioplan/radioplan/pkg/model"
	"github.com/radioplan/radioplan/pkg/snapshot"
)

// PosteRequest 新增门诊地点
type PosteRequest struct {
	Name string `json:"name"`
}

// AttendanceRequest 记录会诊出席
type AttendanceRequest struct {
	SlotID   string                 `json:"slotId"`
	DoctorID string                 `json:"doctorId"`
	Status   model.AttendanceStatus `json:"status"`
}

// OverridesRequest 批量手动覆盖，value 为医生ID、__CLOSED__ 或空（删除）
type OverridesRequest struct {
	SlotIDs []string `json:"slotIds"`
	Value   string   `json:"value"`
}

// AddRcpType 新增会诊定义，同名已存在时不变
func (h *Handler) AddRcpType(c echo.Context) error {
	var req RcpDefinitionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.InvalidInput("name", "不能为空")
	}
	return h.editConfig(c, func(snap *model.Snapshot) (*model.Snapshot, error) {
		return snapshot.AddRcpDefinition(snap, model.RcpDefinition{
			Name:       req.Name,
			Frequency:  req.Frequency,
			WeekParity: req.WeekParity,
		}), nil
	})
}

// AddPoste 新增门诊地点
func (h *Handler) AddPoste(c echo.Context) error {
	var req PosteRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.InvalidInput("name", "不能为空")
	}
	return h.editConfig(c, func(snap *model.Snapshot) (*model.Snapshot, error) {
		return snapshot.AddPoste(snap, req.Name), nil
	})
}

// DeletePoste 删除门诊地点及其模板排班位
func (h *Handler) DeletePoste(c echo.Context) error {
	name := c.Param("name")
	return h.editConfig(c, func(snap *model.Snapshot) (*model.Snapshot, error) {
		for _, p := range snap.Postes {
			if p == name {
				return snapshot.RemovePoste(snap, name), nil
			}
		}
		return nil, apperrors.NotFound("poste", name)
	})
}

// AddUnavailability 新增缺勤记录
func (h *Handler) AddUnavailability(c echo.Context) error {
	var u model.Unavailability
	if err := bind(c, &u); err != nil {
		return err
	}
	if u.DoctorID == "" {
		return apperrors.InvalidInput("doctorId", "不能为空")
	}
	return h.editConfig(c, func(snap *model.Snapshot) (*model.Snapshot, error) {
		return snapshot.AddUnavailability(snap, u), nil
	})
}

// DeleteUnavailability 删除缺勤记录
func (h *Handler) DeleteUnavailability(c echo.Context) error {
	id := c.Param("id")
	return h.editConfig(c, func(snap *model.Snapshot) (*model.Snapshot, error) {
		for _, u := range snap.Unavailabilities {
			if u.ID == id {
				return snapshot.RemoveUnavailability(snap, id), nil
			}
		}
		return nil, apperrors.NotFound("unavailability", id)
	})
}

// PutRcpException 新增或替换会诊例外（取消或改期）
func (h *Handler) PutRcpException(c echo.Context) error {
	var ex model.RcpException
	if err := bind(c, &ex); err != nil {
		return err
	}
	if ex.RcpTemplateID == "" {
		return apperrors.InvalidInput("rcpTemplateId", "不能为空")
	}
	return h.editConfig(c, func(snap *model.Snapshot) (*model.Snapshot, error) {
		return snapshot.UpsertRcpException(snap, ex), nil
	})
}

// DeleteRcpException 删除会诊例外
func (h *Handler) DeleteRcpException(c echo.Context) error {
	templateID, date := c.Param("templateId"), c.Param("date")
	return h.editConfig(c, func(snap *model.Snapshot) (*model.Snapshot, error) {
		for i := range snap.RcpExceptions {
			if snap.RcpExceptions[i].Matches(templateID, date) {
				return snapshot.RemoveRcpException(snap, templateID, date), nil
			}
		}
		return nil, apperrors.NotFound("rcp exception", templateID+"/"+date)
	})
}

// PutAttendance 记录医生对某次会诊的出席决定
func (h *Handler) PutAttendance(c echo.Context) error {
	var req AttendanceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.SlotID == "" || req.DoctorID == "" {
		return apperrors.InvalidInput("slotId", "slotId 与 doctorId 不能为空")
	}
	if req.Status != model.AttendancePresent && req.Status != model.AttendanceAbsent {
		return apperrors.InvalidInput("status", "应为 PRESENT 或 ABSENT")
	}
	return h.editConfig(c, func(snap *model.Snapshot) (*model.Snapshot, error) {
		return snapshot.SetAttendance(snap, req.SlotID, req.DoctorID, req.Status), nil
	})
}

// PutOverrides 对一组排班位设置相同的手动覆盖
func (h *Handler) PutOverrides(c echo.Context) error {
	var req OverridesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if len(req.SlotIDs) == 0 {
		return apperrors.InvalidInput("slotIds", "不能为空")
	}
	return h.editConfig(c, func(snap *model.Snapshot) (*model.Snapshot, error) {
		if req.Value != "" && req.Value != model.ClosedSentinel && snap.FindPhysician(req.Value) == nil {
			return nil, apperrors.PhysicianUnknown(req.Value)
		}
		return snapshot.SetWeeklyOverride(snap, req.SlotIDs, req.Value), nil
	})
}
