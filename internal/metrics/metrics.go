// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー層とサービス層から利用する。
type MetricsCollector interface {
	RecordLogin(method string)
	RecordLoginFailure(reason string)
	RecordSessionIssued()
	RecordSessionRefreshed()
	RecordOAuthCallback(provider, outcome string)
	RecordProfileCreated()
	RecordLinkedInPost(outcome string)
	SetEventSubscribers(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins           *prometheus.CounterVec
	loginFailures    *prometheus.CounterVec
	sessionsIssued   prometheus.Counter
	sessionsRefresh  prometheus.Counter
	oauthCallbacks   *prometheus.CounterVec
	profilesCreated  prometheus.Counter
	linkedinPosts    *prometheus.CounterVec
	eventSubscribers prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talentbase_logins_total",
			Help: "ログイン成功の合計数（認証方式別）",
		}, []string{"method"}),
		loginFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talentbase_login_failures_total",
			Help: "ログイン失敗の合計数（原因別）",
		}, []string{"reason"}),
		sessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "talentbase_sessions_issued_total",
			Help: "発行されたセッションの合計数",
		}),
		sessionsRefresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "talentbase_sessions_refreshed_total",
			Help: "リフレッシュされたセッションの合計数",
		}),
		oauthCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talentbase_oauth_callbacks_total",
			Help: "OAuthコールバック処理の合計数（プロバイダー・結果別）",
		}, []string{"provider", "outcome"}),
		profilesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "talentbase_profiles_created_total",
			Help: "作成されたプロフィールの合計数",
		}),
		linkedinPosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talentbase_linkedin_posts_total",
			Help: "LinkedIn投稿の合計数（結果別）",
		}, []string{"outcome"}),
		eventSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "talentbase_event_subscribers",
			Help: "現在の認証イベントストリームの購読者数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.loginFailures,
		c.sessionsIssued,
		c.sessionsRefresh,
		c.oauthCallbacks,
		c.profilesCreated,
		c.linkedinPosts,
		c.eventSubscribers,
	)

	return c
}

// RecordLogin はログイン成功を認証方式（password, google, linkedin）別に記録する。
func (c *Collector) RecordLogin(method string) {
	c.logins.WithLabelValues(method).Inc()
}

// RecordLoginFailure はログイン失敗を原因別に記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFailures.WithLabelValues(reason).Inc()
}

// RecordSessionIssued はセッション発行を記録する。
func (c *Collector) RecordSessionIssued() {
	c.sessionsIssued.Inc()
}

// RecordSessionRefreshed はセッションリフレッシュを記録する。
func (c *Collector) RecordSessionRefreshed() {
	c.sessionsRefresh.Inc()
}

// RecordOAuthCallback はOAuthコールバック処理をプロバイダー・結果別に記録する。
func (c *Collector) RecordOAuthCallback(provider, outcome string) {
	c.oauthCallbacks.WithLabelValues(provider, outcome).Inc()
}

// RecordProfileCreated はプロフィール作成を記録する。
func (c *Collector) RecordProfileCreated() {
	c.profilesCreated.Inc()
}

// RecordLinkedInPost はLinkedIn投稿を結果別に記録する。
func (c *Collector) RecordLinkedInPost(outcome string) {
	c.linkedinPosts.WithLabelValues(outcome).Inc()
}

// SetEventSubscribers は現在のイベントストリーム購読者数を設定する。
func (c *Collector) SetEventSubscribers(count int) {
	c.eventSubscribers.Set(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
