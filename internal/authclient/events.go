package authclient

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/talentbase/internal/model"
)

// Events は/auth/eventsのSSEストリームを購読し、認証イベントを
// 到着順にチャネルへ流す。ctxのキャンセルまたはサーバー側の切断で
// チャネルはクローズされる。
func (c *Client) Events(ctx context.Context) (<-chan model.AuthEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/events", nil)
	if err != nil {
		return nil, model.NewNetworkError(err.Error())
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, model.NewNetworkError(err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.decodeError(resp)
	}

	events := make(chan model.AuthEvent)
	go c.readEvents(ctx, resp, events)
	return events, nil
}

// readEvents はSSEフレームを1件ずつ復元してチャネルへ送る。
// 空行がフレーム境界であり、dataフィールドにイベント全体のJSONが入る。
func (c *Client) readEvents(ctx context.Context, resp *http.Response, events chan<- model.AuthEvent) {
	defer resp.Body.Close()
	defer close(events)

	scanner := bufio.NewScanner(resp.Body)
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		// コメント行（": connected"等）は接続確認のみで中身を持たない
		if strings.HasPrefix(line, ":") {
			continue
		}
		if after, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimSpace(after))
			continue
		}
		if line != "" {
			// "event:"行はdataのJSONに含まれる種別と重複するため読み飛ばす
			continue
		}

		if data.Len() == 0 {
			continue
		}
		var event model.AuthEvent
		if err := json.Unmarshal([]byte(data.String()), &event); err != nil {
			c.logger.Warn("failed to decode auth event", slog.String("error", err.Error()))
			data.Reset()
			continue
		}
		data.Reset()
		select {
		case events <- event:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil {
		c.logger.Warn("auth event stream closed", slog.String("error", err.Error()))
	}
}
