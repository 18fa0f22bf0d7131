package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/radioplan/radioplan/pkg/errors"
	"github.com/radioplan/radioplan/pkg/export"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export 导出周或月排班
// ?format=xlsx（默认）或 ics；ics 可用 ?doctor= 只导出某位医生
func (h *Handler) Export(c echo.Context) error {
	var req StatsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	slots, conflicts, snap, err := h.window(c, &req)
	if err != nil {
		return err
	}

	name := "planning"
	if len(slots) > 0 {
		name += "-" + slots[0].Date
	}

	switch format := c.QueryParam("format"); format {
	case "", "xlsx":
		buf, err := export.Workbook(slots, conflicts, snap.Doctors)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeExportFailed, "生成 Excel 失败")
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`.xlsx"`)
		return c.Blob(http.StatusOK, mimeXLSX, buf.Bytes())

	case "ics":
		doctorID := c.QueryParam("doctor")
		if doctorID != "" && snap.FindPhysician(doctorID) == nil {
			return apperrors.PhysicianUnknown(doctorID)
		}
		out, err := export.Calendar(slots, snap.Doctors, export.CalendarOptions{
			DoctorID: doctorID,
			Now:      h.now(),
		})
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeExportFailed, "生成日历失败")
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`.ics"`)
		return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(out))

	default:
		return apperrors.InvalidInput("format", "应为 xlsx 或 ics")
	}
}
