package main

import (
	"context"
	"fmt"

	"github.com/UkralStul/localized-view-service/internal/domain"
	"github.com/UkralStul/localized-view-service/internal/storage"
	"go.uber.org/zap"
)

func fillWithMockData(ctx context.Context, s storage.Storage) error {
	// 1. Посты на трех языках, чтобы было что переводить.
	posts := []*domain.Post{
		{
			AuthorID:     "user-1",
			Title:        "京都の紅葉",
			Body:         "今年の紅葉はとてもきれいでした。嵐山がおすすめです。",
			Category:     "travel",
			Visibility:   "public",
			PostType:     "tourism",
			OriginalLang: "ja",
		},
		{
			AuthorID:     "user-2",
			Title:        "Best ramen in Osaka",
			Body:         "I tried five shops last weekend. Here is my ranking.",
			Category:     "food",
			Visibility:   "public",
			PostType:     "blog",
			OriginalLang: "en",
		},
		{
			AuthorID:     "user-3",
			Title:        "부산 여행 후기",
			Body:         "해운대 바다가 정말 아름다웠어요.",
			Category:     "travel",
			Visibility:   "public",
			PostType:     "post",
			OriginalLang: "ko",
		},
	}
	for i, p := range posts {
		p.Status = "published"
		p.MediaURLs = []string{}
		created, err := s.CreatePost(ctx, p)
		if err != nil {
			return fmt.Errorf("fillWithMockData: failed to create post %d: %w", i+1, err)
		}
		posts[i] = created
	}

	// 2. Корневой комментарий и ответ на него.
	c1, err := s.CreateComment(ctx, &domain.Comment{
		PostID:       posts[0].ID,
		AuthorID:     "user-2",
		Body:         "Beautiful! I want to visit in November.",
		OriginalLang: "en",
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create comment: %w", err)
	}
	_, err = s.CreateComment(ctx, &domain.Comment{
		PostID:       posts[0].ID,
		ParentID:     &c1.ID,
		AuthorID:     "user-1",
		Body:         "ぜひ！11月中旬が一番です。",
		OriginalLang: "ja",
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create nested comment: %w", err)
	}

	// 3. Сообщение в демо-чате.
	if _, err := s.CreateMessage(ctx, &domain.Message{
		ChatID:       "chat-demo",
		SenderID:     "user-3",
		Body:         "안녕하세요! 반갑습니다.",
		OriginalLang: "ko",
	}); err != nil {
		return fmt.Errorf("fillWithMockData: failed to create message: %w", err)
	}

	logger.Info("mock data filled",
		zap.String("ja_post", posts[0].ID),
		zap.String("en_post", posts[1].ID),
		zap.String("ko_post", posts[2].ID))
	return nil
}
