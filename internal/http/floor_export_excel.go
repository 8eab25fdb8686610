package httpapi

import (
	"bytes"
	"fmt"

	"officemap-data/internal/domain"

	"github.com/xuri/excelize/v2"
)

// SeatingExportHeader 座位表导出表头
var SeatingExportHeader = []string{
	"Object ID",
	"Name",
	"Type",
	"X",
	"Y",
	"Width",
	"Height",
	"Shape",
	"Person ID",
	"Person Name",
	"Modified Version",
}

// GenerateSeatingExport 生成某个楼层版本的座位表 Excel 文件
// people: person_id -> 姓名（可为空，缺失时人名列留空）
func GenerateSeatingExport(floor *domain.Floor, people map[string]string) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := fmt.Sprintf("%s v%d", floor.Name, floor.Version)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close() // Close on error
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	// 表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range SeatingExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to style header cell: %w", err)
		}
	}

	for i, obj := range floor.Objects {
		values := []any{
			obj.ID,
			obj.Name,
			obj.Type,
			obj.X,
			obj.Y,
			obj.Width,
			obj.Height,
			obj.Shape,
			obj.PersonID,
			people[obj.PersonID],
			obj.ModifiedVersion,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to build data cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set data cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}
