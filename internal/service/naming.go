package service

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/huaiminqin/collection-self/internal/entity"
)

// 命名模板可用变量
var namingVariables = []string{"student_id", "name", "gender", "dormitory"}

var (
	illegalFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	namingPlaceholder    = regexp.MustCompile(`\{(\w+)\}`)
)

// ApplyNamingFormat 按模板生成导出文件/文件夹名，如 "{student_id}_{name}"
func ApplyNamingFormat(template string, member *entity.Member, fileExt string) string {
	values := map[string]string{
		"student_id": member.StudentID,
		"name":       member.Name,
		"gender":     member.Gender,
		"dormitory":  member.Dormitory,
	}

	result := template
	for _, v := range namingVariables {
		result = strings.ReplaceAll(result, "{"+v+"}", SanitizeFilename(values[v]))
	}

	if fileExt != "" && !strings.HasSuffix(result, fileExt) {
		result += fileExt
	}
	return result
}

// SanitizeFilename 清理文件名中的非法字符并限制长度
func SanitizeFilename(name string) string {
	result := illegalFilenameChars.ReplaceAllString(name, "_")
	result = strings.Trim(result, ". ")
	if len(result) > 200 {
		result = result[:200]
	}
	return result
}

// ValidateNamingFormat 校验命名模板：非空、至少一个已知变量、无未知变量
func ValidateNamingFormat(template string) error {
	if template == "" {
		return NewValidationError("命名格式不能为空")
	}

	hasVariable := false
	for _, v := range namingVariables {
		if strings.Contains(template, "{"+v+"}") {
			hasVariable = true
			break
		}
	}
	if !hasVariable {
		return NewValidationError("命名格式必须包含至少一个变量: %s", strings.Join(namingVariables, ", "))
	}

	for _, m := range namingPlaceholder.FindAllStringSubmatch(template, -1) {
		known := false
		for _, v := range namingVariables {
			if m[1] == v {
				known = true
				break
			}
		}
		if !known {
			return NewValidationError("未知变量: %s", m[1])
		}
	}
	return nil
}

// uniqueName 处理同名冲突，冲突时在扩展名前追加序号
func uniqueName(base string, existing map[string]bool) string {
	if !existing[base] {
		existing[base] = true
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !existing[candidate] {
			existing[candidate] = true
			return candidate
		}
	}
}
