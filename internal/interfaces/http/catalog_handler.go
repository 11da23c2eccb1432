package http

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventory-ledger/internal/application/dto"
	"github.com/jhoicas/inventory-ledger/internal/application/importexport"
)

// CatalogHandler exportación e importación tabular del catálogo con stock (protegido).
type CatalogHandler struct {
	gateway *importexport.Gateway
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(gateway *importexport.Gateway) *CatalogHandler {
	return &CatalogHandler{gateway: gateway}
}

// Export godoc
// @Summary      Exportar catálogo
// @Description  CSV con columnas fijas; format=pdf genera el reporte de stock.
// @Tags         catalog
// @Security     Bearer
// @Produce      text/csv
// @Produce      application/pdf
// @Param        format  query  string  false  "csv | pdf"  default(csv)
// @Success      200
// @Router       /api/catalog/export [get]
func (h *CatalogHandler) Export(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	stamp := time.Now().UTC().Format("20060102")
	switch c.Query("format", "csv") {
	case "pdf":
		data, err := h.gateway.ExportPDF(c.UserContext(), companyID, "Reporte de stock")
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="stock_%s.pdf"`, stamp))
		return c.Send(data)
	case "csv":
		var buf bytes.Buffer
		if err := h.gateway.ExportCSV(c.UserContext(), companyID, &buf); err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="catalogo_%s.csv"`, stamp))
		return c.Send(buf.Bytes())
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "format debe ser csv o pdf"})
	}
}

// Import godoc
// @Summary      Importar catálogo
// @Description  CSV en el cuerpo o como archivo multipart "file". charset: auto | utf-8 | iso-8859-1 | windows-1252.
// @Tags         catalog
// @Security     Bearer
// @Accept       text/csv
// @Accept       multipart/form-data
// @Produce      json
// @Param        charset  query  string  false  "Codificación del archivo"  default(auto)
// @Success      200  {object}  dto.ImportResultResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/catalog/import [post]
func (h *CatalogHandler) Import(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var r io.Reader
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return badBody(c)
		}
		defer f.Close()
		r = f
	} else {
		r = bytes.NewReader(c.Body())
	}
	res, err := h.gateway.ImportCSV(c.UserContext(), companyID, GetUserID(c), r, c.Query("charset", importexport.CharsetAuto))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toImportResponse(res))
}

func toImportResponse(res *importexport.ImportResult) dto.ImportResultResponse {
	conv := func(in []importexport.RowMessage) []dto.ImportMessage {
		out := make([]dto.ImportMessage, 0, len(in))
		for _, m := range in {
			out = append(out, dto.ImportMessage{Row: m.Row, Code: m.ItemCode, Message: m.Message})
		}
		return out
	}
	return dto.ImportResultResponse{
		SuccessCount: res.SuccessCount,
		Warnings:     conv(res.Warnings),
		Errors:       conv(res.Errors),
	}
}
