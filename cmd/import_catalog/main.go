// import_catalog carga un CSV de catálogo (ítems, umbrales y stock inicial) para una empresa.
//
// Uso: go run ./cmd/import_catalog -company <id> [-charset auto] [-actor <id>] [-export salida.csv] catalogo.csv
// Usa el mismo almacenamiento que la API (STORAGE_DRIVER, DB_*). Con -export escribe
// el catálogo resultante en CSV al terminar.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/inventory-ledger/internal/application/importexport"
	"github.com/jhoicas/inventory-ledger/internal/bootstrap"
	"github.com/jhoicas/inventory-ledger/pkg/config"
	"github.com/jhoicas/inventory-ledger/pkg/logger"
)

func main() {
	companyID := flag.String("company", "", "empresa destino (obligatorio)")
	actorID := flag.String("actor", "", "usuario que firma los ajustes de stock")
	charset := flag.String("charset", importexport.CharsetAuto, "auto | utf-8 | iso-8859-1 | windows-1252")
	exportPath := flag.String("export", "", "ruta donde escribir el catálogo resultante")
	flag.Parse()

	if *companyID == "" || flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "uso: import_catalog -company <id> [opciones] catalogo.csv")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir almacenamiento: %v\n", err)
		os.Exit(1)
	}
	defer storage.Close()

	services := bootstrap.NewServices(storage, cfg.Ledger, nil, log)

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	res, err := services.Gateway.ImportCSV(ctx, *companyID, *actorID, f, *charset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Importar: %v\n", err)
		os.Exit(1)
	}

	for _, w := range res.Warnings {
		fmt.Printf("fila %d [%s] aviso: %s\n", w.Row, w.ItemCode, w.Message)
	}
	for _, e := range res.Errors {
		fmt.Printf("fila %d [%s] error: %s\n", e.Row, e.ItemCode, e.Message)
	}
	fmt.Printf("Importadas %d filas (%d avisos, %d errores)\n", res.SuccessCount, len(res.Warnings), len(res.Errors))

	if *exportPath != "" {
		out, err := os.Create(*exportPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Crear %s: %v\n", *exportPath, err)
			os.Exit(1)
		}
		if err := services.Gateway.ExportCSV(ctx, *companyID, out); err != nil {
			out.Close()
			fmt.Fprintf(os.Stderr, "Exportar: %v\n", err)
			os.Exit(1)
		}
		if err := out.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Cerrar %s: %v\n", *exportPath, err)
			os.Exit(1)
		}
		fmt.Printf("Catálogo escrito en %s\n", *exportPath)
	}

	if len(res.Errors) > 0 {
		os.Exit(1)
	}
}
