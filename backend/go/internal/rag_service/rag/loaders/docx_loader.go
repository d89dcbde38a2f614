package loaders

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/unidoc/unioffice/v2/common/license"
	"github.com/unidoc/unioffice/v2/document"
)

// 只有成功设置过 unioffice 授权后才走 unioffice 解析, 否则直接读取 word/document.xml。
var officeLicensed atomic.Bool

// DocxLoader 实现了用于读取 Word (.docx) 文件的 Loader 接口。
// 文档按标题段落切分为若干节, 每一节生成一个片段, section 从 1 开始计数。
type DocxLoader struct{}

// NewDocxLoader 创建一个新的 DocxLoader。
func NewDocxLoader() *DocxLoader {
	return &DocxLoader{}
}

// SetLicenseKey 设置 unioffice 的计量授权密钥, 空字符串时不做任何事。
func SetLicenseKey(key string) error {
	if key == "" {
		return nil
	}
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("设置 unioffice 授权失败: %w", err)
	}
	officeLicensed.Store(true)
	return nil
}

// docxParagraph 是两种解析方式共用的中间结构。
type docxParagraph struct {
	style string
	text  string
}

// Load 读取一个 .docx 文件，按标题切分段落。
func (l *DocxLoader) Load(ctx context.Context, path string) ([]schema.Fragment, error) {
	var (
		paras  []docxParagraph
		tables []string
		err    error
	)
	if officeLicensed.Load() {
		paras, tables, err = readWithUnioffice(path)
	} else {
		paras, tables, err = readDocumentXML(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open docx: %w", schema.ErrLoad, err)
	}
	return sections(ctx, paras, tables)
}

// sections 在标题处切分正文, 表格内容附加为独立的节, 以免被正文吞掉。
func sections(ctx context.Context, paras []docxParagraph, tables []string) ([]schema.Fragment, error) {
	var (
		fragments []schema.Fragment
		current   strings.Builder
		section   = 1
	)
	flush := func() {
		text := sanitize(current.String())
		if text != "" {
			fragments = append(fragments, schema.Fragment{
				Text:     text,
				Metadata: map[string]interface{}{schema.MetadataKeySection: section},
			})
		}
		current.Reset()
	}

	for _, p := range paras {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := strings.TrimSpace(p.text)
		if isHeading(p.style) && current.Len() > 0 {
			flush()
			section++
		}
		if text == "" {
			continue
		}
		current.WriteString(text)
		current.WriteString("\n")
	}
	flush()

	for _, tbl := range tables {
		if strings.TrimSpace(tbl) == "" {
			continue
		}
		section++
		current.WriteString(tbl)
		flush()
	}
	return fragments, nil
}

func readWithUnioffice(path string) ([]docxParagraph, []string, error) {
	doc, err := document.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer doc.Close()

	runText := func(p document.Paragraph) string {
		var sb strings.Builder
		for _, r := range p.Runs() {
			sb.WriteString(r.Text())
		}
		return sb.String()
	}

	paras := make([]docxParagraph, 0, len(doc.Paragraphs()))
	for _, p := range doc.Paragraphs() {
		paras = append(paras, docxParagraph{style: p.Style(), text: runText(p)})
	}

	var tables []string
	for _, tbl := range doc.Tables() {
		var sb strings.Builder
		for _, row := range tbl.Rows() {
			cells := make([]string, 0, len(row.Cells()))
			for _, cell := range row.Cells() {
				var cb strings.Builder
				for _, p := range cell.Paragraphs() {
					cb.WriteString(runText(p))
				}
				cells = append(cells, strings.TrimSpace(cb.String()))
			}
			sb.WriteString(strings.Join(cells, " | "))
			sb.WriteString("\n")
		}
		tables = append(tables, sb.String())
	}
	return paras, tables, nil
}

// word/document.xml 中用到的元素, 按本地名匹配, 不关心 w: 命名空间。
type xmlDocument struct {
	Body struct {
		Paragraphs []xmlParagraph `xml:"p"`
		Tables     []xmlTable     `xml:"tbl"`
	} `xml:"body"`
}

type xmlParagraph struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs  []xmlRun `xml:"r"`
	Links []struct {
		Runs []xmlRun `xml:"r"`
	} `xml:"hyperlink"`
}

type xmlRun struct {
	Text []string `xml:"t"`
}

type xmlTable struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []xmlParagraph `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

func (p xmlParagraph) text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(strings.Join(r.Text, ""))
	}
	for _, link := range p.Links {
		for _, r := range link.Runs {
			sb.WriteString(strings.Join(r.Text, ""))
		}
	}
	return sb.String()
}

func readDocumentXML(path string) ([]docxParagraph, []string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, err
	}
	defer zr.Close()

	var doc xmlDocument
	found := false
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, nil, err
		}
		err = xml.NewDecoder(io.LimitReader(rc, maxDocumentXML)).Decode(&doc)
		rc.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("parse word/document.xml: %w", err)
		}
		found = true
		break
	}
	if !found {
		return nil, nil, fmt.Errorf("word/document.xml not found")
	}

	paras := make([]docxParagraph, 0, len(doc.Body.Paragraphs))
	for _, p := range doc.Body.Paragraphs {
		paras = append(paras, docxParagraph{style: p.Props.Style.Val, text: p.text()})
	}

	tables := make([]string, 0, len(doc.Body.Tables))
	for _, tbl := range doc.Body.Tables {
		var sb strings.Builder
		for _, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				var cb strings.Builder
				for _, p := range cell.Paragraphs {
					cb.WriteString(p.text())
				}
				cells = append(cells, strings.TrimSpace(cb.String()))
			}
			sb.WriteString(strings.Join(cells, " | "))
			sb.WriteString("\n")
		}
		tables = append(tables, sb.String())
	}
	return paras, tables, nil
}

// 解压后的 document.xml 上限, 防止压缩炸弹。
const maxDocumentXML = 64 << 20

// isHeading 判断段落样式是否为标题 (Heading1..9 或 Title)。
func isHeading(style string) bool {
	s := strings.ToLower(style)
	return strings.HasPrefix(s, "heading") || s == "title"
}

// compile-time check to ensure DocxLoader implements the Loader interface
var _ interfaces.Loader = (*DocxLoader)(nil)
