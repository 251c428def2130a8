package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/bonlog/bonlog/app/models"
	"github.com/bonlog/bonlog/internal/pkg/cache"
	"github.com/bonlog/bonlog/internal/pkg/database"
)

const (
	CacheKeyPostsTotal = "statistics:posts:total"
	CacheKeyPostsDaily = "statistics:posts:daily:%s" // format with date YYYY-MM-DD
	CacheKeyUsers      = "statistics:users:total"
	CacheExpiration    = 30 * time.Minute
)

// StatisticsData carries the landing page numbers.
type StatisticsData struct {
	TodayPosts int
	TotalUsers int
	TotalPosts int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cache is stale.
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cache when stale.
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// UpdateStatisticsCache updates all statistics in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalPosts int64
	if err := db.Model(&models.Post{}).Where("published_at IS NOT NULL").Count(&totalPosts).Error; err != nil {
		log.Printf("Error counting total posts: %v", err)
		return err
	}

	var todayPosts int64
	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	if err := db.Model(&models.Post{}).Where("published_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayPosts).Error; err != nil {
		log.Printf("Error counting today's posts: %v", err)
		return err
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyPostsTotal, strconv.FormatInt(totalPosts, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total posts: %v", err)
		return err
	}

	dailyKey := fmt.Sprintf(CacheKeyPostsDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayPosts, 10), CacheExpiration); err != nil {
		log.Printf("Error caching today's posts: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total users: %v", err)
		return err
	}

	return nil
}

// GetTotalPosts returns the total number of published posts from cache or database
func GetTotalPosts() int {
	val, err := cache.Get(CacheKeyPostsTotal)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.Post{}).Where("published_at IS NOT NULL").Count(&count).Error; err != nil {
			log.Printf("Error counting total posts: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyPostsTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total posts: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTodayPosts returns the number of posts published today from cache or database
func GetTodayPosts() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyPostsDaily, today)

	val, err := cache.Get(dailyKey)
	if err != nil {
		var count int64
		db := database.GetDB()
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)

		if err := db.Model(&models.Post{}).Where("published_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&count).Error; err != nil {
			log.Printf("Error counting today's posts: %v", err)
			return 0
		}

		if err := cache.Set(dailyKey, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching today's posts: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	val, err := cache.Get(CacheKeyUsers)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total users: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyUsers, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total users: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}

// GetStatisticsData returns all statistics data as StatisticsData structure
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TodayPosts: GetTodayPosts(),
		TotalUsers: GetTotalUsers(),
		TotalPosts: GetTotalPosts(),
	}
}
