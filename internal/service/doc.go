// Package service ties the metric registry, the publisher registry and the task
// queue into one explicitly constructed Service.
//
// Typical use:
//
//	svc := service.New("game")
//	_ = svc.RegisterPublisher(ctx, prom)
//	_ = svc.RegisterMetric(&metric.Metric{Name: "players_online", TagFields: []string{"server"}})
//	svc.Start(ctx)
//	defer svc.Close(ctx)
//
//	b, _ := svc.Record("players_online")
//	_, _ = b.Tag("server", "lobby-1").ValueInt(42).Publish()
package service
