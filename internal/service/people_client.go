package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"officemap-data/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Person 人员目录条目（由外部账号/档案服务维护）
type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Org   string `json:"org"`
	Mail  string `json:"mail"`
	Post  string `json:"post"`
	Image string `json:"image"`
}

// peopleResponse 人员服务的响应包装
type peopleResponse struct {
	People []Person `json:"people"`
}

// PeopleClient 人员目录服务客户端
// 认证与人员数据由独立服务负责，这里只做查询转发
type PeopleClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewPeopleClient 创建人员目录客户端
func NewPeopleClient(baseURL, token string, logger *zap.Logger) *PeopleClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}

	return &PeopleClient{
		httpClient: client,
		logger:     logger,
	}
}

// GetPerson 按ID查询人员；不存在时返回 domain.ErrNotFound
func (c *PeopleClient) GetPerson(ctx context.Context, personID string) (*Person, error) {
	if personID == "" {
		return nil, fmt.Errorf("person id is required: %w", domain.ErrValidation)
	}

	var person Person
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&person).
		Get("/people/api/v1/people/" + personID)
	if err != nil {
		return nil, fmt.Errorf("failed to call people service: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("person %s: %w", personID, domain.ErrNotFound)
	}
	if resp.IsError() {
		c.logger.Error("People service returned error",
			zap.String("person_id", personID),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("people service returned status %d", resp.StatusCode())
	}
	return &person, nil
}

// SearchPeople 按姓名/工号搜索人员（座位分配对话框使用）
func (c *PeopleClient) SearchPeople(ctx context.Context, query string) ([]Person, error) {
	var result peopleResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetResult(&result).
		Get("/people/api/v1/people/search")
	if err != nil {
		return nil, fmt.Errorf("failed to call people service: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("People service search returned error",
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("people service returned status %d", resp.StatusCode())
	}
	return result.People, nil
}
