// internal/service/model_query.go
package service

import (
	"context"
	"fmt"
	"time"

	"escpos-bridge/internal/driver/escpos"
	"escpos-bridge/internal/model"
	"escpos-bridge/internal/protocol"
)

// queryModelName asks the printer for its model with GS I 67 over a
// short-lived connection
func queryModelName(ctx context.Context, dialer protocol.Dialer, printer model.Printer, timeout time.Duration) (string, error) {
	transport, err := dialer.Dial(printer)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := transport.Open(ctx); err != nil {
		return "", err
	}
	defer transport.Close()

	if err := transport.Write(ctx, escpos.ModelNameQuery()); err != nil {
		return "", err
	}

	resp, err := transport.Read(ctx, escpos.ModelNameResponseLen)
	if err != nil {
		return "", err
	}

	name := escpos.ParseModelName(resp)
	if name == "" {
		return "", fmt.Errorf("empty model name response from %s", printer.Endpoint())
	}
	return name, nil
}
