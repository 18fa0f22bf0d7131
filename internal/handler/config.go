package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/radioplan/radioplan/internal/metrics"
	"github.com/radioplan/radioplan/internal/repository"
	apperrors "github.com/radioplan/radioplan/pkg/errors"
	"github.com/radioplan/radioplan/pkg/logger"
	"github.com/radioplan/radioplan/pkg/model"
	"github.com/radioplan/radioplan/pkg/snapshot"
)

// maxBundleSize 导入配置的大小上限
const maxBundleSize = 8 << 20

// GetConfig 返回最新保存的配置；?id= 指定版本
func (h *Handler) GetConfig(c echo.Context) error {
	ctx := c.Request().Context()
	if raw := c.QueryParam("id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperrors.InvalidInput("id", "无效的UUID")
		}
		record, err := h.store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, record)
	}

	record, err := h.store.Latest(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// PutConfig 导入配置包并保存为新版本
// 包中缺少的部分沿用当前配置，出现的部分整体替换
func (h *Handler) PutConfig(c echo.Context) error {
	ctx := c.Request().Context()

	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBundleSize))
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "读取请求失败")
	}

	base := &model.Snapshot{}
	current, err := h.store.Latest(ctx)
	switch {
	case err == nil:
		base = current.Snapshot
	case !apperrors.Is(err, apperrors.CodeNotFound):
		return err
	}

	snap, err := snapshot.Import(base, data)
	if err != nil {
		return err
	}

	record, err := h.store.Save(ctx, snap, c.QueryParam("label"))
	if err != nil {
		return err
	}
	metrics.RecordSnapshotSaved()

	logger.WithContext(ctx).Info().
		Str("snapshot_id", record.ID.String()).
		Int("version", record.Version).
		Int("doctors", len(snap.Doctors)).
		Msg("配置已保存")

	return c.JSON(http.StatusOK, record)
}

// ExportConfig 以配置包格式导出最新配置
func (h *Handler) ExportConfig(c echo.Context) error {
	record, err := h.store.Latest(c.Request().Context())
	if err != nil {
		return err
	}
	data, err := snapshot.Export(record.Snapshot, h.now())
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="radioplan-v`+strconv.Itoa(record.Version)+`.json"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, data)
}

// ListVersions 列出已保存的配置版本
func (h *Handler) ListVersions(c echo.Context) error {
	filter := repository.DefaultListFilter()
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		filter = filter.WithLimit(v)
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil {
		filter = filter.WithOffset(v)
	}

	records, total, err := h.store.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"versions": records,
		"total":    total,
	})
}

// RcpDefinitionRequest 修改会诊定义；name 变化时同步模板地点
type RcpDefinitionRequest struct {
	Name       string           `json:"name"`
	Frequency  model.Frequency  `json:"frequency,omitempty"`
	WeekParity model.WeekParity `json:"weekParity,omitempty"`
}

// DeleteDoctor 删除医生并清理模板、缺勤、覆盖、出席与历史中的引用
func (h *Handler) DeleteDoctor(c echo.Context) error {
	id := c.Param("id")
	return h.editConfig(c, func(snap *model.Snapshot) (*model.Snapshot, error) {
		if snap.FindPhysician(id) == nil {
			return nil, apperrors.PhysicianUnknown(id)
		}
		return snapshot.RemovePhysician(snap, id), nil
	})
}

// UpdateRcpType 修改会诊定义的名称、频率或奇偶
func (h *Handler) UpdateRcpType(c echo.Context) error {
	id := c.Param("id")
	var req RcpDefinitionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Frequency != "" && req.Frequency != model.FrequencyWeekly && req.Frequency != model.FrequencyBiweekly {
		return apperrors.InvalidInput("frequency", "应为 WEEKLY 或 BIWEEKLY")
	}
	if req.WeekParity != "" && req.WeekParity != model.ParityOdd && req.WeekParity != model.ParityEven {
		return apperrors.InvalidInput("weekParity", "应为 ODD 或 EVEN")
	}

	return h.editConfig(c, func(snap *model.Snapshot) (*model.Snapshot, error) {
		def := findRcpType(snap, id)
		if def == nil {
			return nil, apperrors.NotFound("rcp definition", id)
		}
		updated := *def
		out := snap
		if name := strings.TrimSpace(req.Name); name != "" && name != def.Name {
			out = snapshot.RenameRcpDefinition(out, def.Name, name)
			updated.Name = name
		}
		if req.Frequency != "" {
			updated.Frequency = req.Frequency
		}
		if req.WeekParity != "" {
			updated.WeekParity = req.WeekParity
		}
		return snapshot.UpdateRcpDefinition(out, updated), nil
	})
}

// DeleteRcpType 删除会诊定义及其模板排班位和相关手动覆盖
func (h *Handler) DeleteRcpType(c echo.Context) error {
	id := c.Param("id")
	return h.editConfig(c, func(snap *model.Snapshot) (*model.Snapshot, error) {
		if findRcpType(snap, id) == nil {
			return nil, apperrors.NotFound("rcp definition", id)
		}
		return snapshot.RemoveRcpDefinition(snap, id), nil
	})
}

// editConfig 在最新配置上执行修改，校验后保存为新版本
func (h *Handler) editConfig(c echo.Context, edit func(*model.Snapshot) (*model.Snapshot, error)) error {
	ctx := c.Request().Context()
	current, err := h.store.Latest(ctx)
	if err != nil {
		return err
	}
	snap, err := edit(current.Snapshot)
	if err != nil {
		return err
	}
	if ve := snapshot.Validate(snap); ve.HasErrors() {
		return ve.ToAppError()
	}

	record, err := h.store.Save(ctx, snap, c.QueryParam("label"))
	if err != nil {
		return err
	}
	metrics.RecordSnapshotSaved()

	logger.WithContext(ctx).Info().
		Str("snapshot_id", record.ID.String()).
		Int("version", record.Version).
		Str("route", c.Path()).
		Msg("配置已修改")
	return c.JSON(http.StatusOK, record)
}

func findRcpType(snap *model.Snapshot, id string) *model.RcpDefinition {
	for i := range snap.RcpTypes {
		if snap.RcpTypes[i].ID == id {
			return &snap.RcpTypes[i]
		}
	}
	return nil
}
